package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/mw"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/queue"
)

type joinQueueRequest struct {
	MachineID      *int64              `json:"machineId"`
	MachineClass   *model.MachineClass `json:"machineClass"`
	PreferredStart *time.Time          `json:"preferredStart"`
	Notify         *bool               `json:"notifyOnAvailable"`
}

// JoinQueue handles POST /api/queue. The request targets either one
// machine or a whole class, never both.
func (h *Handler) JoinQueue(c *gin.Context) {
	var req joinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.MachineID == nil) == (req.MachineClass == nil) {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			gin.H{"error": "exactly one of machineId and machineClass is required"})
		return
	}

	var partition queue.Partition
	if req.MachineID != nil {
		partition = queue.ByMachine(*req.MachineID)
	} else {
		partition = queue.ByClass(*req.MachineClass)
	}
	notify := true
	if req.Notify != nil {
		notify = *req.Notify
	}

	entry, err := h.queue.Join(c.Request.Context(), mw.UserID(c), partition, req.PreferredStart, notify)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func queueEntryIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("entry_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid queue entry ID"})
		return 0, false
	}
	return id, true
}

// GetQueueEntry handles GET /api/queue/:entry_id: the live view with
// recomputed rank, wait estimate and genuinely free machines.
func (h *Handler) GetQueueEntry(c *gin.Context) {
	id, ok := queueEntryIDParam(c)
	if !ok {
		return
	}
	status, err := h.queue.Status(c.Request.Context(), id, mw.UserID(c), time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// LeaveQueue handles DELETE /api/queue/:entry_id. Everyone behind the
// leaver moves up one place and, if subscribed, hears about it.
func (h *Handler) LeaveQueue(c *gin.Context) {
	id, ok := queueEntryIDParam(c)
	if !ok {
		return
	}
	result, err := h.queue.Leave(c.Request.Context(), id, mw.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	for i := range result.Shifted {
		e := &result.Shifted[i]
		if !e.NotifyOnAvailable {
			continue
		}
		h.notify(c.Request.Context(), notification.QueuePositionUpdate(
			h.methodFor(c.Request.Context(), e.UserID), e, queue.PartitionOf(e).String()))
	}

	c.JSON(http.StatusOK, result.Entry)
}
