package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusshare/server/internal/chat"
	"github.com/campusshare/server/internal/database"
	"github.com/campusshare/server/internal/requests"
)

// respondError maps domain errors onto HTTP statuses. Invalid
// transitions get 409 because they are an expected race outcome, not a
// server fault.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrBadSubject),
		errors.Is(err, requests.ErrEmptyMessage),
		errors.Is(err, requests.ErrOwnItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrResolution):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, requests.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, requests.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrItemNotFound),
		errors.Is(err, database.ErrRequestNotFound),
		errors.Is(err, database.ErrThreadNotFound),
		errors.Is(err, database.ErrLostFoundNotFound),
		errors.Is(err, database.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
