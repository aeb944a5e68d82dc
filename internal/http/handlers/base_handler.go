// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guetchou/BantuDelice-sub001/internal/maps"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/booking"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/location"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/ride"
)

type errorResponse struct {
	Error  string `json:"error"`
	Step   string `json:"step,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// isValidID accepts the hex ride ids and the uuid/uid forms used for sessions and users.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeServiceError(c *gin.Context, err error) {
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		writeJSON(c, http.StatusUnprocessableEntity, errorResponse{
			Error:  booking.ErrValidationFailed.Error(),
			Step:   ve.Step.String(),
			Reason: string(ve.Reason),
		})
		return
	}

	switch {
	case errors.Is(err, booking.ErrSessionNotFound), errors.Is(err, ride.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ride.ErrBadRequest),
		errors.Is(err, location.ErrBadRequest),
		errors.Is(err, booking.ErrInvalidLocation),
		errors.Is(err, pricing.ErrUnknownClass),
		errors.Is(err, pricing.ErrBadDistance):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ride.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrWorkflowClosed),
		errors.Is(err, booking.ErrFinalStep),
		errors.Is(err, booking.ErrNotAtFinalStep),
		errors.Is(err, booking.ErrWrongStep),
		errors.Is(err, booking.ErrDriverUnavailable),
		errors.Is(err, ride.ErrInvalidState),
		errors.Is(err, ride.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrGeocodingFailed), errors.Is(err, maps.ErrAddressNotFound):
		writeError(c, http.StatusUnprocessableEntity, booking.ErrGeocodingFailed.Error())
	case errors.Is(err, booking.ErrRideCreationFailed), errors.Is(err, booking.ErrRideSyncFailed):
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, errorHead(err))
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// errorHead hides backend detail behind the workflow sentinel.
func errorHead(err error) string {
	for _, s := range []error{booking.ErrRideCreationFailed, booking.ErrRideSyncFailed} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}
