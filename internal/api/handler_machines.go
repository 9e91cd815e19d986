package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/schedule"
)

// machineResponse is the machine list item with its live availability.
// IsFreeNow reconciles the coarse status flag against real-time
// reservation overlap.
type machineResponse struct {
	model.Machine
	IsFreeNow bool `json:"isFreeNow"`
}

// GetMachines handles GET /api/machines.
func (h *Handler) GetMachines(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	now := time.Now()
	var busyIDs []int64
	if err := h.store.DB().WithContext(c.Request.Context()).
		Model(&model.Reservation{}).
		Where("status = ? AND start_time <= ? AND end_time > ?", model.ReservationActive, now, now).
		Distinct().
		Pluck("machine_id", &busyIDs).Error; err != nil {
		writeError(c, err)
		return
	}
	busy := make(map[int64]bool, len(busyIDs))
	for _, id := range busyIDs {
		busy[id] = true
	}

	response := make([]machineResponse, 0, len(machines))
	for _, m := range machines {
		response = append(response, machineResponse{
			Machine:   m,
			IsFreeNow: m.Schedulable() && !busy[m.ID],
		})
	}
	c.JSON(http.StatusOK, response)
}

func machineIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("machine_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid machine ID"})
		return 0, false
	}
	return id, true
}

// GetMachineSlots handles GET /api/machines/:machine_id/slots?date=&slot_minutes=.
func (h *Handler) GetMachineSlots(c *gin.Context) {
	machineID, ok := machineIDParam(c)
	if !ok {
		return
	}

	day := time.Now().In(h.loc)
	if dateParam := c.Query("date"); dateParam != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateParam, h.loc)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid 'date', use YYYY-MM-DD"})
			return
		}
		day = parsed
	}
	slotMinutes := 0
	if raw := c.Query("slot_minutes"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid 'slot_minutes'"})
			return
		}
		slotMinutes = v
	}

	machine, err := h.store.GetMachine(c.Request.Context(), machineID)
	if err != nil {
		writeError(c, err)
		return
	}
	open, close := h.policy.OperatingWindow(day)
	active, err := h.store.ActiveReservations(c.Request.Context(), machineID, open, close)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"machineId":       machine.ID,
		"date":            day.Format("2006-01-02"),
		"availabilityPct": schedule.DayAvailability(h.policy, day, machine, active),
		"slots":           schedule.GenerateTimeSlots(h.policy, day, machine, active, slotMinutes),
	})
}

// GetNextAvailableSlot handles GET /api/machines/:machine_id/next-slot?duration=.
func (h *Handler) GetNextAvailableSlot(c *gin.Context) {
	machineID, ok := machineIDParam(c)
	if !ok {
		return
	}
	duration := h.policy.SlotMinutes
	if raw := c.Query("duration"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid 'duration'"})
			return
		}
		duration = v
	}

	machine, err := h.store.GetMachine(c.Request.Context(), machineID)
	if err != nil {
		writeError(c, err)
		return
	}
	now := time.Now().In(h.loc)
	horizon := now.AddDate(0, 0, h.policy.SearchHorizonDays)
	active, err := h.store.ActiveReservations(c.Request.Context(), machineID, now, horizon)
	if err != nil {
		writeError(c, err)
		return
	}

	slot, found := schedule.NextAvailableSlot(h.policy, now, machine, active, duration)
	if !found {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "slot": slot})
}

type setMachineStatusRequest struct {
	Status     model.MachineStatus `json:"status" binding:"required"`
	OutOfOrder bool                `json:"outOfOrder"`
	Reason     string              `json:"reason"`
}

// SetMachineStatus handles PUT /api/machines/:machine_id/status, used by
// operations tooling.
func (h *Handler) SetMachineStatus(c *gin.Context) {
	machineID, ok := machineIDParam(c)
	if !ok {
		return
	}
	var req setMachineStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch req.Status {
	case model.MachineAvailable, model.MachineInUse, model.MachineMaintenance, model.MachineOutOfOrder:
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown machine status"})
		return
	}

	machine, err := h.store.SetMachineStatus(c.Request.Context(), machineID, req.Status, req.OutOfOrder, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, machine)
}

type scheduleMaintenanceRequest struct {
	At     time.Time `json:"at" binding:"required"`
	Reason string    `json:"reason"`
}

// ScheduleMaintenance handles POST /api/machines/:machine_id/maintenance:
// flags the machine and warns holders of reservations from the
// maintenance start onward.
func (h *Handler) ScheduleMaintenance(c *gin.Context) {
	machineID, ok := machineIDParam(c)
	if !ok {
		return
	}
	var req scheduleMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	machine, err := h.store.SetMachineStatus(c.Request.Context(), machineID, model.MachineMaintenance, false, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	affected, err := h.store.ActiveReservations(c.Request.Context(), machineID, req.At, req.At.AddDate(1, 0, 0))
	if err != nil {
		writeError(c, err)
		return
	}
	seen := make(map[int64]bool)
	for i := range affected {
		r := &affected[i]
		if seen[r.UserID] {
			continue
		}
		seen[r.UserID] = true
		h.notify(c.Request.Context(), notification.MaintenanceScheduled(
			h.methodFor(c.Request.Context(), r.UserID), r.UserID, machine.Name, req.At))
	}

	c.JSON(http.StatusOK, gin.H{"machine": machine, "notifiedUsers": len(seen)})
}
