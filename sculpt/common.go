package sculpt

import "path/filepath"

const (
	Kilo = 1 << 10
	Mega = 1 << 20
	Giga = 1 << 30
)

// Version is the version of the sculpting core.
const Version = "1.2.0"

var (
	// Verbose is set when we want to be exceptionally verbose.
	Verbose bool

	// NumCPU is the number of cores available to compute devices.
	NumCPU int = 1
)

// ConvertToAbsolute returns path unchanged if it is absolute, else joined to baseDir.
func ConvertToAbsolute(path, baseDir string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(filepath.Join(baseDir, path))
}
