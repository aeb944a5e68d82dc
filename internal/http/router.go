// README: HTTP router registration.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guetchou/BantuDelice-sub001/internal/http/handlers"
	"github.com/guetchou/BantuDelice-sub001/internal/http/middleware"
	"github.com/guetchou/BantuDelice-sub001/internal/infra"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/booking"
)

type RouterDeps struct {
	Verifier infra.CallerVerifier
	Bookings *booking.Registry
	Rides    handlers.RideService
	Pricing  handlers.Quoter
	Drivers  handlers.DriverUpdater
	// Places may be nil when no maps key is configured.
	Places handlers.PlaceSuggester
	// Ready reports dependency health for /ready; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *slog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger), middleware.RequestID(), middleware.Logging(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/ready", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
		}
		c.String(http.StatusOK, "ready")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	bookingHandler := handlers.NewBookingHandler(deps.Bookings)
	bookings := api.Group("/bookings")
	bookings.POST("", bookingHandler.Start)
	bookings.GET("/:id", bookingHandler.Get)
	bookings.PATCH("/:id", bookingHandler.Update)
	bookings.GET("/:id/check", bookingHandler.Check)
	bookings.POST("/:id/advance", bookingHandler.Advance)
	bookings.POST("/:id/retreat", bookingHandler.Retreat)
	bookings.POST("/:id/address", bookingHandler.ResolveAddress)
	bookings.PUT("/:id/location", bookingHandler.SetLocation)
	bookings.POST("/:id/current-location", bookingHandler.UseCurrentLocation)
	bookings.GET("/:id/drivers", bookingHandler.Drivers)
	bookings.PUT("/:id/driver", bookingHandler.SelectDriver)
	bookings.DELETE("/:id/driver", bookingHandler.ClearDriver)
	bookings.POST("/:id/finalize", bookingHandler.Finalize)
	bookings.POST("/:id/cancel", bookingHandler.Cancel)

	placeHandler := handlers.NewPlaceHandler(deps.Places)
	api.GET("/places/suggest", placeHandler.Suggest)

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	api.GET("/pricing/estimate", pricingHandler.Estimate)
	api.GET("/pricing/rates", pricingHandler.Rates)

	rideHandler := handlers.NewRideHandler(deps.Rides)
	api.GET("/rides/:id", rideHandler.Get)
	api.POST("/rides/:id/status", rideHandler.UpdateStatus)

	locationHandler := handlers.NewLocationHandler(deps.Drivers)
	api.PUT("/drivers/:id/location", middleware.RequireRole(middleware.RoleDriver), locationHandler.Update)

	return r
}
