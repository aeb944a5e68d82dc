// README: Booking workflow handlers; one session per passenger booking.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guetchou/BantuDelice-sub001/internal/http/middleware"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/booking"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type BookingHandler struct {
	sessions *booking.Registry
}

func NewBookingHandler(sessions *booking.Registry) *BookingHandler {
	return &BookingHandler{sessions: sessions}
}

type bookingResponse struct {
	SessionID string `json:"session_id"`
	booking.View
}

type addressReq struct {
	Side booking.Side `json:"side"`
	Text string       `json:"text"`
}

type locationReq struct {
	Side    booking.Side `json:"side"`
	Address string       `json:"address"`
	Lat     *float64     `json:"lat"`
	Lng     *float64     `json:"lng"`
}

type selectDriverReq struct {
	DriverID string `json:"driver_id"`
}

func (h *BookingHandler) Start(c *gin.Context) {
	id, wf := h.sessions.Start(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	writeJSON(c, http.StatusCreated, bookingResponse{SessionID: id, View: wf.View()})
}

// workflow resolves the :id session for the caller, writing the error response itself.
func (h *BookingHandler) workflow(c *gin.Context) (*booking.Workflow, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	wf, err := h.sessions.Get(id, types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeServiceError(c, err)
		return nil, false
	}
	return wf, true
}

func (h *BookingHandler) respond(c *gin.Context, wf *booking.Workflow) {
	writeJSON(c, http.StatusOK, bookingResponse{SessionID: c.Param("id"), View: wf.View()})
}

func (h *BookingHandler) Get(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	h.respond(c, wf)
}

func (h *BookingHandler) Update(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	var patch booking.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := wf.Update(patch); err != nil {
		writeServiceError(c, err)
		return
	}
	h.respond(c, wf)
}

func (h *BookingHandler) Check(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, wf.Check())
}

func (h *BookingHandler) Advance(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	if _, err := wf.Advance(c.Request.Context()); err != nil {
		writeServiceError(c, err)
		return
	}
	h.respond(c, wf)
}

func (h *BookingHandler) Retreat(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	if _, err := wf.Retreat(); err != nil {
		writeServiceError(c, err)
		return
	}
	h.respond(c, wf)
}

func (h *BookingHandler) ResolveAddress(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	var req addressReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		writeError(c, http.StatusBadRequest, "side and text are required")
		return
	}
	if err := wf.ResolveAddress(c.Request.Context(), req.Side, req.Text); err != nil {
		writeServiceError(c, err)
		return
	}
	h.respond(c, wf)
}

func (h *BookingHandler) SetLocation(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lng == nil || req.Address == "" {
		writeError(c, http.StatusBadRequest, "side, address, lat and lng are required")
		return
	}
	if err := wf.SetLocation(req.Side, req.Address, types.Point{Lat: *req.Lat, Lng: *req.Lng}); err != nil {
		writeServiceError(c, err)
		return
	}
	h.respond(c, wf)
}

func (h *BookingHandler) UseCurrentLocation(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lng == nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	if _, err := wf.UseCurrentLocation(c.Request.Context(), types.Point{Lat: *req.Lat, Lng: *req.Lng}); err != nil {
		writeServiceError(c, err)
		return
	}
	h.respond(c, wf)
}

func (h *BookingHandler) Drivers(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	list, err := wf.Candidates(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"drivers": list})
}

func (h *BookingHandler) SelectDriver(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	var req selectDriverReq
	if err := c.ShouldBindJSON(&req); err != nil || !isValidID(req.DriverID) {
		writeError(c, http.StatusBadRequest, "driver_id is required")
		return
	}
	if err := wf.SelectDriver(types.ID(req.DriverID)); err != nil {
		writeServiceError(c, err)
		return
	}
	h.respond(c, wf)
}

func (h *BookingHandler) ClearDriver(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	if err := wf.ClearDriver(); err != nil {
		writeServiceError(c, err)
		return
	}
	h.respond(c, wf)
}

func (h *BookingHandler) Finalize(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	if _, err := wf.Finalize(c.Request.Context()); err != nil {
		writeServiceError(c, err)
		return
	}
	h.respond(c, wf)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	if err := wf.Cancel(); err != nil {
		writeServiceError(c, err)
		return
	}
	h.respond(c, wf)
}
