package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"laundry-booking-backend/internal/mw"
	"laundry-booking-backend/internal/notification"
)

type createReservationRequest struct {
	MachineID int64     `json:"machineId" binding:"required"`
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
	Notes     string    `json:"notes"`
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := mw.UserID(c)

	reservation, err := h.store.CreateReservation(c.Request.Context(),
		userID, req.MachineID, req.StartTime.In(h.loc), req.EndTime.In(h.loc), req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}

	machineName := "your machine"
	if machine, err := h.store.GetMachine(c.Request.Context(), req.MachineID); err == nil {
		machineName = machine.Name
	}
	h.notify(c.Request.Context(), notification.Confirmation(
		h.methodFor(c.Request.Context(), userID), reservation, machineName))

	c.JSON(http.StatusCreated, reservation)
}

// ListReservations handles GET /api/reservations.
func (h *Handler) ListReservations(c *gin.Context) {
	reservations, err := h.store.ListUserReservations(c.Request.Context(), mw.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func reservationIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("reservation_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid reservation ID"})
		return 0, false
	}
	return id, true
}

type updateReservationRequest struct {
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Notes     *string    `json:"notes"`
}

// UpdateReservation handles PATCH /api/reservations/:reservation_id.
func (h *Handler) UpdateReservation(c *gin.Context) {
	id, ok := reservationIDParam(c)
	if !ok {
		return
	}
	var req updateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.StartTime == nil && req.EndTime == nil && req.Notes == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	if req.StartTime != nil {
		t := req.StartTime.In(h.loc)
		req.StartTime = &t
	}
	if req.EndTime != nil {
		t := req.EndTime.In(h.loc)
		req.EndTime = &t
	}

	reservation, err := h.store.UpdateReservation(c.Request.Context(),
		id, mw.UserID(c), req.StartTime, req.EndTime, req.Notes, time.Now().In(h.loc))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// CancelReservation handles DELETE /api/reservations/:reservation_id.
func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := reservationIDParam(c)
	if !ok {
		return
	}
	userID := mw.UserID(c)

	reservation, err := h.store.CancelReservation(c.Request.Context(), id, userID, time.Now().In(h.loc))
	if err != nil {
		writeError(c, err)
		return
	}

	machineName := "your machine"
	if machine, err := h.store.GetMachine(c.Request.Context(), reservation.MachineID); err == nil {
		machineName = machine.Name
	}
	h.notify(c.Request.Context(), notification.Cancellation(
		h.methodFor(c.Request.Context(), userID), reservation, machineName))

	c.JSON(http.StatusOK, reservation)
}
