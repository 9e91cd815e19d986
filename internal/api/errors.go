package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-booking-backend/internal/apperr"
)

// writeError maps the error taxonomy onto HTTP statuses. Expected
// outcomes keep their structured code so clients can branch on it;
// anything unclassified is a 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindUnauthorized:
		status = http.StatusForbidden
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindInvalidRequest:
		status = http.StatusBadRequest
	case apperr.KindResourceUnavailable:
		status = http.StatusUnprocessableEntity
	}

	body := gin.H{"error": err.Error()}
	if code := apperr.CodeOf(err); code != "" {
		body["code"] = code
	}
	c.AbortWithStatusJSON(status, body)
}
