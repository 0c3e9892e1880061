package server

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/oauthconnect/internal/config"
	"github.com/dropDatabas3/oauthconnect/internal/observability/logger"
)

// Run sirve HTTP hasta que ctx se cancela y después hace shutdown ordenado.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      a.handler,
		ReadTimeout:  config.Duration(a.cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(a.cfg.Server.WriteTimeout),
	}
	log := logger.L().With(logger.Component("server"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", logger.String("addr", srv.Addr), logger.Strings("connect_paths", a.cfg.ConnectPaths()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(a.cfg.Server.ShutdownTimeout))
		defer cancel()

		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if cerr := a.Close(); cerr != nil {
		log.Warn("cleanup error", logger.Err(cerr))
	}
	return err
}
