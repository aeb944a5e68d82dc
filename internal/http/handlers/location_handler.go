// README: Driver position and availability updates.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guetchou/BantuDelice-sub001/internal/http/middleware"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/location"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type DriverUpdater interface {
	UpdateDriver(ctx context.Context, u location.DriverUpdate) error
}

type LocationHandler struct {
	location DriverUpdater
}

func NewLocationHandler(svc DriverUpdater) *LocationHandler {
	return &LocationHandler{location: svc}
}

type driverLocationReq struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Status       string  `json:"status"`
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	Vehicle      string  `json:"vehicle"`
	VehicleClass string  `json:"vehicle_class"`
	DeviceToken  string  `json:"device_token"`
}

func (h *LocationHandler) Update(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "missing id")
		return
	}
	// Only the authenticated driver may update their own location.
	if middleware.CallerRole(c) != middleware.RoleDriver {
		writeError(c, http.StatusForbidden, "forbidden: driver role required")
		return
	}
	if middleware.CallerUID(c) != id {
		writeError(c, http.StatusForbidden, "forbidden: id does not match authenticated user")
		return
	}
	var req driverLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.location.UpdateDriver(c.Request.Context(), location.DriverUpdate{
		DriverID:     types.ID(id),
		Name:         req.Name,
		Rating:       req.Rating,
		Vehicle:      req.Vehicle,
		VehicleClass: pricing.VehicleClass(req.VehicleClass),
		Position:     types.Point{Lat: req.Lat, Lng: req.Lng},
		Status:       location.DriverStatus(req.Status),
		DeviceToken:  req.DeviceToken,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "ok"})
}
