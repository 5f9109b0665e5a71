package server

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/cors"
	"github.com/zenazn/goji/web"

	"github.com/isoterra/sculpt/compute"
	"github.com/isoterra/sculpt/grid"
	"github.com/isoterra/sculpt/message"
	"github.com/isoterra/sculpt/property"
	"github.com/isoterra/sculpt/sculpt"
)

// Server is the HTTP bridge between a host UI and one session.
type Server struct {
	config  *Config
	session *Session
	device  compute.Device
	auth    *authorizer
	blocks  *blockList
	mux     *web.Mux
	handler http.Handler
	started time.Time
}

// NewServer wraps a session with routing, CORS and optional authentication.
func NewServer(config *Config, session *Session, device compute.Device) (*Server, error) {
	auth, err := newAuthorizer(config.Auth)
	if err != nil {
		return nil, err
	}
	blocks, err := loadBlockListFile(config.Server.BlockListFile)
	if err != nil {
		return nil, err
	}
	s := &Server{
		config:  config,
		session: session,
		device:  device,
		auth:    auth,
		blocks:  blocks,
		started: time.Now(),
	}
	s.initRoutes()
	s.handler = s.mux
	if len(config.Server.CorsDomains) != 0 {
		s.handler = cors.New(cors.Options{
			AllowedOrigins:   config.Server.CorsDomains,
			AllowedMethods:   []string{"GET", "POST", "PUT", "HEAD"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
			AllowCredentials: true,
		}).Handler(s.mux)
	}
	return s, nil
}

// ServeHTTP lets a Server be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Session returns the session served.
func (s *Server) Session() *Session {
	return s.session
}

// Initialize builds a session from configuration: logging, the brush library, the
// seeded grid, a software compute device and the configured event publishers.
func Initialize(config *Config) (*Server, error) {
	config.Logging.SetLogger()

	var lib *property.Library
	var err error
	if config.Brushes.Library == "" {
		sculpt.Infof("No brush library configured, using built-in brushes.\n")
		lib = property.DefaultLibrary()
	} else if lib, err = property.LoadLibrary(config.Brushes.Library); err != nil {
		return nil, err
	}

	extent, err := config.Extent()
	if err != nil {
		return nil, err
	}
	g, err := grid.New(extent, config.Grid.ChunkSize)
	if err != nil {
		return nil, err
	}
	if config.Grid.GroundLevel != 0 {
		g.Fill(grid.GroundPlane(config.Grid.GroundLevel))
	}

	sculpt.NumCPU = runtime.NumCPU()
	device := compute.NewSoftwareDevice(config.Compute.Workers)
	sculpt.Infof("Using %d of %d logical CPUs for %s.\n", device.Workers(), runtime.NumCPU(), device)

	publisher, err := newPublisher(config)
	if err != nil {
		return nil, err
	}
	compress, err := config.PayloadCompression()
	if err != nil {
		return nil, err
	}
	session, err := NewSession(lib, g, device, publisher, compress)
	if err != nil {
		publisher.Close()
		return nil, err
	}
	s, err := NewServer(config, session, device)
	if err != nil {
		session.Close()
		return nil, err
	}
	return s, nil
}

func newPublisher(config *Config) (message.Publisher, error) {
	var publishers message.Fanout
	if config.Events.LocalBuffer > 0 {
		local := message.NewLocalPublisher(config.Events.LocalBuffer)
		go drainLocal(local)
		publishers = append(publishers, local)
	}
	if len(config.Kafka.Servers) != 0 {
		kafka, err := message.NewKafkaPublisher(config.Kafka)
		if err != nil {
			publishers.Close()
			return nil, err
		}
		publishers = append(publishers, kafka)
	}
	switch len(publishers) {
	case 0:
		return message.NopPublisher{}, nil
	case 1:
		return publishers[0], nil
	default:
		return publishers, nil
	}
}

// drainLocal stands in for an in-process mesher, logging each mutated chunk.
func drainLocal(local *message.LocalPublisher) {
	for e := range local.Events() {
		sculpt.Debugf("Mesh update needed: %s\n", e)
	}
}

// Serve listens on the configured address until the context is done, then gives
// in-flight requests the configured delay before closing the session.
func (s *Server) Serve(ctx context.Context) error {
	addr := s.config.Server.HTTPAddress
	if addr == "" {
		addr = DefaultWebAddress
	}
	srv := &http.Server{
		Addr:        addr,
		Handler:     s,
		ReadTimeout: 1 * time.Hour,
	}
	errs := make(chan error, 1)
	go func() {
		sculpt.Infof("Web server listening at %s ...\n", addr)
		errs <- srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errs:
	case <-ctx.Done():
		sculpt.Infof("Shutting down web server, waiting up to %s ...\n", s.config.ShutdownDelay())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownDelay())
		err = srv.Shutdown(shutdownCtx)
		cancel()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if cerr := s.session.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
