package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gopawz/booking/api"
	"github.com/gopawz/booking/config"
	"github.com/gopawz/booking/internal/service/checkin"
	"github.com/gopawz/booking/internal/service/lifecycle"
)

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, lifecycleSvc lifecycle.LifecycleUseCase, checkinSvc checkin.CheckinUseCase) error {
	router := gin.Default()

	apiGroup := router.Group("/api")
	api.NewBookingHandler(lifecycleSvc).Register(apiGroup.Group("/bookings"))
	api.NewCheckinHandler(checkinSvc).Register(apiGroup)

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
