// README: Ride lookup and lifecycle transitions for passengers and drivers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guetchou/BantuDelice-sub001/internal/http/middleware"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/ride"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type RideService interface {
	Get(ctx context.Context, id types.ID) (*ride.Ride, error)
	UpdateStatus(ctx context.Context, cmd ride.StatusCommand) error
}

type RideHandler struct {
	rides RideService
}

func NewRideHandler(svc RideService) *RideHandler {
	return &RideHandler{rides: svc}
}

type statusReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *RideHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return
	}
	r, err := h.rides.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !canSee(r, types.ID(middleware.CallerUID(c))) {
		writeServiceError(c, ride.ErrForbidden)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

// UpdateStatus lets drivers take and progress rides and passengers cancel their own.
func (h *RideHandler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		writeError(c, http.StatusBadRequest, "status is required")
		return
	}
	ctx := c.Request.Context()
	r, err := h.rides.Get(ctx, types.ID(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	caller := types.ID(middleware.CallerUID(c))
	cmd := ride.StatusCommand{
		RideID:  r.ID,
		To:      ride.Status(req.Status),
		ActorID: &caller,
		Reason:  req.Reason,
	}
	if middleware.CallerRole(c) == middleware.RoleDriver {
		cmd.ActorType = middleware.RoleDriver
		if cmd.To == ride.StatusAssigned {
			if r.RequestedDriverID != nil && *r.RequestedDriverID != caller {
				writeError(c, http.StatusForbidden, "ride was requested from another driver")
				return
			}
			cmd.DriverID = &caller
		} else if r.DriverID == nil || *r.DriverID != caller {
			writeError(c, http.StatusForbidden, "ride is not assigned to caller")
			return
		}
	} else {
		cmd.ActorType = middleware.RolePassenger
		if r.PassengerID != caller {
			writeServiceError(c, ride.ErrForbidden)
			return
		}
		if cmd.To != ride.StatusCancelled {
			writeError(c, http.StatusForbidden, "passengers can only cancel")
			return
		}
	}

	if err := h.rides.UpdateStatus(ctx, cmd); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"ride_id": r.ID, "status": cmd.To})
}

func canSee(r *ride.Ride, caller types.ID) bool {
	if r.PassengerID == caller {
		return true
	}
	if r.DriverID != nil && *r.DriverID == caller {
		return true
	}
	return r.RequestedDriverID != nil && *r.RequestedDriverID == caller
}
