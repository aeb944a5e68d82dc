// README: Address autocomplete for the location step.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guetchou/BantuDelice-sub001/internal/maps"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type PlaceSuggester interface {
	Suggest(ctx context.Context, query string, near *types.Point) ([]maps.Suggestion, error)
}

type PlaceHandler struct {
	places PlaceSuggester
}

func NewPlaceHandler(places PlaceSuggester) *PlaceHandler {
	return &PlaceHandler{places: places}
}

// Suggest answers GET ?q=...&lat=..&lng=.. ; lat/lng bias results and are optional.
func (h *PlaceHandler) Suggest(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) < 2 {
		writeJSON(c, http.StatusOK, map[string]any{"suggestions": []maps.Suggestion{}})
		return
	}
	var near *types.Point
	if lat, lng := c.Query("lat"), c.Query("lng"); lat != "" && lng != "" {
		la, err1 := strconv.ParseFloat(lat, 64)
		ln, err2 := strconv.ParseFloat(lng, 64)
		p := types.Point{Lat: la, Lng: ln}
		if err1 != nil || err2 != nil || !p.Valid() {
			writeError(c, http.StatusBadRequest, "invalid lat/lng")
			return
		}
		near = &p
	}
	if h.places == nil {
		writeError(c, http.StatusServiceUnavailable, "address search unavailable")
		return
	}
	out, err := h.places.Suggest(c.Request.Context(), q, near)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"suggestions": out})
}
