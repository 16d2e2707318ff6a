// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   • ReadTimeout        – abort slow-loris headers (10 s)
//   • WriteTimeout       – cap total response time
//   • IdleTimeout        – close keep-alives on idle clients (60 s)
//
// The account-created hook holds its response open while WHM creates the
// account and WP Toolkit installs WordPress, so WriteTimeout must outlast
// the longest remote call plus the recovery check.  New derives it from
// the gateway's create timeout instead of a fixed 15 s.
//

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// writeSlack covers everything around the slowest remote call: the
// recovery delay, discovery, FTP and the registry write.
const writeSlack = 2 * time.Minute

// ShutdownGrace bounds how long Run waits for in-flight hooks.
const ShutdownGrace = 30 * time.Second

// New constructs an *http.Server with sensible defaults.  longest is the
// slowest remote call a handler may make.
func New(addr string, handler http.Handler, longest time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2*longest + writeSlack,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to ShutdownGrace.
func Run(ctx context.Context, srv *http.Server, log *zap.SugaredLogger) error {
	errc := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", srv.Addr, "write_timeout", srv.WriteTimeout)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down", "grace", ShutdownGrace)
	sctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	return nil
}
