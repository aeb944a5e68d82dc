// README: Fare estimate and rate card handlers.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/guetchou/BantuDelice-sub001/internal/modules/location"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type Quoter interface {
	Quote(ctx context.Context, distanceKm float64, class pricing.VehicleClass) (pricing.Quote, error)
	Rates(ctx context.Context) pricing.Table
}

type PricingHandler struct {
	pricing Quoter
}

func NewPricingHandler(svc Quoter) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

// Estimate prices either distance_km, or the great-circle distance between
// pickup_lat/pickup_lng and dest_lat/dest_lng, for vehicle_class (default standard).
func (h *PricingHandler) Estimate(c *gin.Context) {
	class := pricing.VehicleClass(c.DefaultQuery("vehicle_class", string(pricing.ClassStandard)))

	var dist float64
	if raw := c.Query("distance_km"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid distance_km")
			return
		}
		dist = d
	} else {
		pickup, ok1 := queryPoint(c, "pickup_lat", "pickup_lng")
		dest, ok2 := queryPoint(c, "dest_lat", "dest_lng")
		if !ok1 || !ok2 {
			writeError(c, http.StatusBadRequest, "distance_km or pickup and destination coordinates are required")
			return
		}
		dist = location.EstimateDistanceKm(pickup, dest)
	}

	q, err := h.pricing.Quote(c.Request.Context(), dist, class)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

func (h *PricingHandler) Rates(c *gin.Context) {
	t := h.pricing.Rates(c.Request.Context())
	out := make([]pricing.Rate, 0, len(pricing.Classes))
	for _, class := range pricing.Classes {
		if r, ok := t[class]; ok {
			out = append(out, r)
		}
	}
	writeJSON(c, http.StatusOK, map[string]any{"rates": out})
}

func queryPoint(c *gin.Context, latKey, lngKey string) (types.Point, bool) {
	lat, err1 := strconv.ParseFloat(c.Query(latKey), 64)
	lng, err2 := strconv.ParseFloat(c.Query(lngKey), 64)
	p := types.Point{Lat: lat, Lng: lng}
	if err1 != nil || err2 != nil || !p.Valid() {
		return types.Point{}, false
	}
	return p, true
}
