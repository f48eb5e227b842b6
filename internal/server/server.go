package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// TLS modes accepted in TLSOptions.Mode. An empty mode means TLSOff.
const (
	TLSOff    = "off"
	TLSAuto   = "auto"
	TLSManual = "manual"
)

type TLSOptions struct {
	Mode string

	// TLSManual
	CertFile string
	KeyFile  string

	// TLSAuto
	Domain   string
	Email    string
	CacheDir string
}

// Server is the public HTTP listener. In TLSAuto mode it also runs a plain
// HTTP listener on :80 for ACME challenges and HTTPS redirects.
type Server struct {
	addr           string
	mode           string
	tlsOpts        TLSOptions
	httpServer     *http.Server
	certManager    *autocert.Manager
	redirectServer *http.Server
}

func New(host string, port int, handler http.Handler, tlsOpts TLSOptions) *Server {
	mode := tlsOpts.Mode
	if mode == "" {
		mode = TLSOff
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	s := &Server{
		addr:    addr,
		mode:    mode,
		tlsOpts: tlsOpts,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// AI search and enrichment can hold a request for a while.
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
	if mode == TLSAuto {
		s.configureACME()
	}
	return s
}

func (s *Server) configureACME() {
	s.certManager = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(s.tlsOpts.Domain),
		Cache:      autocert.DirCache(s.tlsOpts.CacheDir),
		Email:      s.tlsOpts.Email,
	}
	s.httpServer.TLSConfig = &tls.Config{
		GetCertificate: s.certManager.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
	s.redirectServer = &http.Server{
		Addr:              ":80",
		Handler:           s.certManager.HTTPHandler(nil),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Start blocks serving requests until Shutdown, then returns
// http.ErrServerClosed.
func (s *Server) Start() error {
	log := slog.With("addr", s.addr, "tls", s.mode)

	switch s.mode {
	case TLSAuto:
		go func() {
			if err := s.redirectServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("acme redirect listener failed", "error", err)
			}
		}()
		log.Info("listening", "domain", s.tlsOpts.Domain)
		return s.httpServer.ListenAndServeTLS("", "")
	case TLSManual:
		log.Info("listening")
		return s.httpServer.ListenAndServeTLS(s.tlsOpts.CertFile, s.tlsOpts.KeyFile)
	default:
		log.Info("listening")
		return s.httpServer.ListenAndServe()
	}
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	if s.redirectServer != nil {
		if err := s.redirectServer.Shutdown(ctx); err != nil {
			slog.Warn("acme redirect listener shutdown", "error", err)
		}
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string { return s.addr }

func (s *Server) TLSMode() string { return s.mode }
