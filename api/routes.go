package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/txfeed/internal/creation"
	"github.com/carson-networks/txfeed/internal/feed"
	feedhandler "github.com/carson-networks/txfeed/internal/handlers/v1/feed"
	"github.com/carson-networks/txfeed/internal/handlers/v1/status"
	"github.com/carson-networks/txfeed/internal/handlers/v1/transaction"
	"github.com/carson-networks/txfeed/internal/logging"
)

type Rest struct {
	Logger    *logrus.Logger
	Port      string
	Feed      *feed.SharedFeedCache
	Refresher *feed.RefreshTrigger
	Submitter *creation.Submitter
}

// Router builds the view API.
func (r *Rest) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	statusHandler := status.NewHandler(r.Feed)
	router.HandleFunc("/status", logging.LoggingWrapper("Status", r.Logger, statusHandler.Handler))

	api := humachi.New(router, huma.DefaultConfig("txfeed", "1.0.0"))
	api.UseMiddleware(logging.HumaMiddleware(r.Logger))

	feedhandler.NewGetFeedHandler(r.Feed).Register(api)
	feedhandler.NewStreamFeedHandler(r.Feed, r.Logger).Register(api)
	feedhandler.NewRefreshFeedHandler(r.Refresher).Register(api)
	transaction.NewCreateTransactionHandler(r.Submitter).Register(api)

	return router
}

// Serve listens until ctx is done, then shuts the server down.
func (r *Rest) Serve(ctx context.Context) error {
	server := http.Server{
		Addr:    ":" + r.Port,
		Handler: r.Router(),
		// No WriteTimeout: /v1/feed/stream holds its connection open.
		ReadTimeout:       time.Duration(30) * time.Second,
		IdleTimeout:       time.Duration(10) * time.Second,
		ReadHeaderTimeout: time.Duration(10) * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		r.Logger.WithField("port", r.Port).Info("HttpServer.Serve.listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		r.Logger.WithError(err).Error("HttpServer.Serve.listen error")
		return err
	case <-ctx.Done():
	}

	r.Logger.Info("HttpServer.Serve.shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
