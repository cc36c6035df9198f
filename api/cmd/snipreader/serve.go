package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/radhikaramasamy/snipreader/api/internal/handle"
)

var serveNoDB bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Endpoints:
  POST   /v1/questions/image        multipart "image" or JSON {"image_b64"}; mode=structured|ocr
  POST   /v1/questions/text         JSON {"text"}
  GET    /v1/sets                   history, newest first
  GET    /v1/sets/{id}
  GET    /v1/sets/{id}/export       ?format=txt|xlsx
  POST   /v1/sets/export            JSON {"ids":[...],"format"}
  DELETE /v1/sets/{id}
  GET    /healthz`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, !serveNoDB)
		if err != nil {
			return err
		}
		defer a.Close()

		var repo handle.SetRepo
		if a.repo != nil {
			repo = a.repo
		}
		h := handle.New(a.svc, repo, a.db, a.logger)
		srv := &http.Server{
			Addr:              a.addr(),
			Handler:           h.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return listen(ctx, srv, a)
	},
}

// listen serves until ctx is cancelled, then shuts down gracefully.
func listen(ctx context.Context, srv *http.Server, a *app) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.logger.Info("http shutting down")
	return srv.Shutdown(shutdownCtx)
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoDB, "no-db", false, "run without history (sets are not stored)")
	rootCmd.AddCommand(serveCmd)
}
