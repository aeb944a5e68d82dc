// README: Router wiring tests (public health endpoints, auth boundary, request ids).
package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guetchou/BantuDelice-sub001/internal/http/middleware"
	"github.com/guetchou/BantuDelice-sub001/internal/infra"
	"github.com/guetchou/BantuDelice-sub001/internal/logging"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/booking"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
)

type denyAll struct{}

func (denyAll) VerifyCaller(context.Context, string) (infra.Caller, error) {
	return infra.Caller{}, errors.New("denied")
}

func testRouter(ready func(context.Context) error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterDeps{
		Verifier: denyAll{},
		Bookings: booking.NewRegistry(booking.Deps{Logger: logging.Discard()}, nil, time.Minute),
		Pricing:  pricing.NewService(nil, logging.Discard()),
		Ready:    ready,
		Logger:   logging.Discard(),
	})
}

func TestRouter_PublicEndpoints(t *testing.T) {
	r := testRouter(nil)
	for _, path := range []string{"/health", "/ready", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s = %d", path, w.Code)
		}
		if w.Header().Get(middleware.RequestIDHeader) == "" {
			t.Errorf("%s: missing request id header", path)
		}
	}
}

func TestRouter_NotReady(t *testing.T) {
	r := testRouter(func(context.Context) error { return errors.New("redis down") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready = %d", w.Code)
	}
}

func TestRouter_APIRequiresAuth(t *testing.T) {
	r := testRouter(nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/bookings"},
		{http.MethodGet, "/api/pricing/estimate?distance_km=3"},
		{http.MethodGet, "/api/rides/abc"},
		{http.MethodPut, "/api/drivers/d1/location"},
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer whatever")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", tc.method, tc.path, w.Code)
		}
	}
}
