// README: Entry point; loads config, wires services, starts HTTP server and the booking session janitor.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/guetchou/BantuDelice-sub001/internal/config"
	"github.com/guetchou/BantuDelice-sub001/internal/events"
	httptransport "github.com/guetchou/BantuDelice-sub001/internal/http"
	"github.com/guetchou/BantuDelice-sub001/internal/infra"
	"github.com/guetchou/BantuDelice-sub001/internal/logging"
	"github.com/guetchou/BantuDelice-sub001/internal/maps"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/booking"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/location"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/ride"
	"github.com/guetchou/BantuDelice-sub001/internal/payments"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		return errors.New("BANTU_FIREBASE_PROJECT_ID is required")
	}
	fb, err := infra.OpenFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	if cfg.DB.Migrate {
		if err := infra.Migrate(ctx, dbPool); err != nil {
			return err
		}
	}

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		publisher = kp
	} else {
		logger.Warn("BANTU_KAFKA_BROKERS not set; ride events are not published")
	}

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool), logger)

	locationStore := location.NewStore(redisClient)
	locationSvc := location.NewService(locationStore, cfg.Driver, logger)

	notifier, err := location.NewFirebaseNotifier(ctx, fb.App(), locationStore, logger)
	if err != nil {
		return err
	}
	rideSvc := ride.NewService(ride.NewStore(dbPool), publisher, notifier, logger)

	deps := booking.Deps{
		Rides:   rideSvc,
		Drivers: locationSvc,
		Timeout: cfg.Booking.BackendTimeout,
		Logger:  logger,
	}
	routerDeps := httptransport.RouterDeps{
		Verifier: fb,
		Rides:    rideSvc,
		Pricing:  pricingSvc,
		Drivers:  locationSvc,
		Ready: func(ctx context.Context) error {
			if err := dbPool.Ping(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		},
		Logger: logger,
	}
	if cfg.Maps.APIKey != "" {
		geocoder, err := maps.NewGeocoder(cfg.Maps.APIKey, cfg.Maps.Region, cfg.Maps.Language)
		if err != nil {
			return err
		}
		deps.Geocoder = geocoder
		routerDeps.Places = geocoder
	} else {
		logger.Warn("BANTU_MAPS_API_KEY not set; address search and geocoding disabled")
	}
	if cfg.Stripe.APIKey != "" {
		stripeClient := payments.NewStripeClient(cfg.Stripe.APIKey)
		deps.Payments = stripeClient
		rideSvc.WithPayments(stripeClient)
	} else {
		logger.Warn("BANTU_STRIPE_API_KEY not set; card bookings are not pre-authorized")
	}

	sessions := booking.NewRegistry(deps, pricingSvc, cfg.Booking.SessionTTL)
	routerDeps.Bookings = sessions
	go sessions.RunJanitor(ctx, cfg.Booking.JanitorEvery)

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httptransport.NewRouter(routerDeps),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
