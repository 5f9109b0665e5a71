// Command-line interface to the terrain sculpting server.
// Serves a sculpting session and inspects brush libraries.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/isoterra/sculpt/brush"
	"github.com/isoterra/sculpt/compute"
	"github.com/isoterra/sculpt/property"
	"github.com/isoterra/sculpt/sculpt"
	"github.com/isoterra/sculpt/server"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Address for http communication, overriding the config file.
	httpAddress = flag.String("http", "", "")

	// Number of compute workers, overriding the config file.
	useCPU = flag.Int("numcpu", 0, "")
)

const helpMessage = `
sculpt serves an editable isosurface terrain to a host editor UI

Usage: sculpt [options] <command>

      -http       =string   Address for HTTP communication (default %s).
      -numcpu     =number   Number of compute workers for brush dispatch.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	serve   <config.toml>
	brushes [library file]     validates a brush library, the built-in one if none given
	token   <config.toml> <user>
`

var usage = func() {
	fmt.Printf(helpMessage, server.DefaultWebAddress)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}

	if *runVerbose {
		sculpt.Verbose = true
		sculpt.SetLogMode(sculpt.DebugMode)
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	if err := DoCommand(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// DoCommand serves as a switchboard for commands.
func DoCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("Blank command!")
	}

	switch args[0] {
	case "serve":
		if len(args) != 2 {
			return fmt.Errorf("serve command needs a TOML configuration file")
		}
		return DoServe(args[1])
	case "brushes":
		if len(args) > 2 {
			return fmt.Errorf("brushes command takes at most one library file")
		}
		var filename string
		if len(args) == 2 {
			filename = args[1]
		}
		return DoBrushes(filename)
	case "token":
		if len(args) != 3 {
			return fmt.Errorf("token command needs a TOML configuration file and a user")
		}
		return DoToken(args[1], args[2])
	case "about":
		fmt.Printf("sculpt %s\n", sculpt.Version)
		fmt.Printf("library versions: %s\n", property.SupportedVersions)
		fmt.Printf("brush variants: %s\n", strings.Join(brush.Variants(), ", "))
		fmt.Printf("compute kernels: %s\n", strings.Join(compute.Kernels(), ", "))
	default:
		return fmt.Errorf("unknown command %q; see 'sculpt help'", args[0])
	}
	return nil
}

// DoServe runs the server until interrupted.
func DoServe(configPath string) error {
	config, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if *httpAddress != "" {
		config.Server.HTTPAddress = *httpAddress
	}
	if *useCPU != 0 {
		config.Compute.Workers = *useCPU
	}
	s, err := server.Initialize(config)
	if err != nil {
		return err
	}
	sculpt.Infof("Running on %d logical CPUs\n", runtime.NumCPU())

	// Capture ctrl+c and other interrupts.  Then handle graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = s.Serve(ctx)
	sculpt.Shutdown()
	return err
}

// DoBrushes loads a library and checks every brush can be built from it.
func DoBrushes(filename string) error {
	lib := property.DefaultLibrary()
	if filename != "" {
		var err error
		if lib, err = property.LoadLibrary(filename); err != nil {
			return err
		}
	}
	device := compute.NewSoftwareDevice(1)
	fmt.Printf("%s (version %s)\n", lib.Source(), lib.Version)
	for _, name := range lib.BrushNames() {
		b, err := brush.NewFromLibrary(lib, name, device)
		if err != nil {
			return err
		}
		asset := lib.Brushes[name]
		fmt.Printf("  %-12s %-16s kernel %-14q geometry %-5t properties %s\n", name, b.Variant(),
			asset.Kernel, b.AffectsGeometry(), strings.Join(b.GetExtendedProperties(), ", "))
	}
	return nil
}

// DoToken prints a JWT for a user signed with the configured secret.
func DoToken(configPath, user string) error {
	config, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}
	token, err := server.GenerateJWT(user, config.Auth.SecretKey)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
