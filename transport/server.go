package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"goji.io"
	"goji.io/pat"
)

// PeerHeader is the request header a holder uses to name itself. Without
// it the remote address of the signaling request is used.
const PeerHeader = "X-Pointer-Peer"

// PeerFromRequest returns the identity a signaling request claims.
func PeerFromRequest(r *http.Request) PeerID {
	if id := r.Header.Get(PeerHeader); id != "" {
		return PeerID(id)
	}
	return PeerID(r.RemoteAddr)
}

// A ServerConfig describes how a watcher's signaling server is bound.
type ServerConfig struct {
	Host string
	// Ports are tried in order; the first free one is used.
	Ports     []int
	QueueSize int
	Logger    golog.Logger
}

// A Server accepts holder connections over HTTP signaling endpoints that
// concrete transports register, and exposes every attached peer as one
// Transport.
type Server struct {
	*Hub

	config     ServerConfig
	mux        *goji.Mux
	listener   net.Listener
	httpServer *http.Server
	started    bool

	activeBackgroundWorkers sync.WaitGroup
	logger                  golog.Logger
}

// ErrServerAlreadyStarted happens when the server has already been started.
var ErrServerAlreadyStarted = errors.New("already started")

// NewServer returns a server that is not yet bound.
func NewServer(config ServerConfig) *Server {
	logger := config.Logger
	if logger == nil {
		logger = golog.Global().Named("server")
	}
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/healthz"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &Server{
		Hub:    NewHub(config.QueueSize, logger),
		config: config,
		mux:    mux,
		logger: logger,
	}
}

// Handle registers a signaling endpoint. It must be called before Start.
func (s *Server) Handle(pattern goji.Pattern, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Start binds the first free candidate port and starts serving.
func (s *Server) Start() error {
	if s.started {
		return ErrServerAlreadyStarted
	}
	listener, err := Listen(s.config.Host, s.config.Ports)
	if err != nil {
		return err
	}
	s.started = true
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	s.activeBackgroundWorkers.Add(1)
	utils.PanicCapturingGo(func() {
		defer s.activeBackgroundWorkers.Done()
		s.logger.Infow("serving", "url", fmt.Sprintf("http://%s", listener.Addr()))
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("error serving", "error", err)
		}
	})
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound port, or 0 before Start.
func (s *Server) Port() int {
	if tcpAddr, ok := s.Addr().(*net.TCPAddr); ok {
		return tcpAddr.Port
	}
	return 0
}

// Close stops serving and closes every peer connection.
func (s *Server) Close() (err error) {
	defer s.activeBackgroundWorkers.Wait()
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	}
	return multierr.Combine(err, s.Hub.Close())
}
