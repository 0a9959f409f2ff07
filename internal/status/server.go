package status

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/batch"
)

// NewRouter builds the read-only review router: the status documents and
// the entry store, exactly as the static site would see them.
func NewRouter(layout batch.Layout) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	serveFile := func(path string) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			raw, err := os.ReadFile(path)
			if err != nil {
				http.Error(w, fmt.Sprintf("not available: %s", path), http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write(raw)
		}
	}

	r.Get("/automation-status.json", serveFile(layout.StatusPath()))
	r.Get("/automation-review-feed.json", serveFile(layout.ReviewFeedPath()))
	r.Get("/entries.json", serveFile(layout.EntriesPath()))
	r.Get("/sources.json", serveFile(layout.SourcesPath()))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve runs the review server until the context is canceled.
func Serve(ctx context.Context, layout batch.Layout, addr string, logger *zap.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(layout),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Info("review server listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown review server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("review server: %w", err)
	}
}
