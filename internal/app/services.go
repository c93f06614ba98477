package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/R3E-Network/submission_review/internal/app/system"
	"github.com/R3E-Network/submission_review/internal/logging"
	"github.com/R3E-Network/submission_review/internal/middleware"
)

// httpService serves the API until stopped.
type httpService struct {
	srv *http.Server
	log *logging.Logger
	ln  net.Listener
}

func (s *httpService) Name() string { return "http" }

func (s *httpService) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()
	s.log.WithField("addr", ln.Addr().String()).Info("http server listening")
	return nil
}

func (s *httpService) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Addr returns the bound address once started.
func (s *httpService) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

// limiterJanitor prunes idle rate limiter buckets.
type limiterJanitor struct {
	rl       *middleware.RateLimiter
	interval time.Duration
	cancel   context.CancelFunc
}

func (j *limiterJanitor) Name() string { return "ratelimit-janitor" }

func (j *limiterJanitor) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j.cancel = cancel
	j.rl.StartCleanup(runCtx, j.interval)
	return nil
}

func (j *limiterJanitor) Stop(context.Context) error {
	if j.cancel != nil {
		j.cancel()
	}
	return nil
}

// closer adapts a Close method to a service stopped with the manager.
type closer struct {
	name  string
	close func() error
}

func (c closer) Name() string                { return c.name }
func (c closer) Start(context.Context) error { return nil }
func (c closer) Stop(context.Context) error  { return c.close() }

var (
	_ system.Service = (*httpService)(nil)
	_ system.Service = (*limiterJanitor)(nil)
	_ system.Service = closer{}
)
