package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusshare/server/internal/database"
	"github.com/campusshare/server/internal/models"
)

// AdminHandler exposes moderation and dashboard routes.
type AdminHandler struct {
	DB database.Store
}

func NewAdminHandler(db database.Store) *AdminHandler {
	return &AdminHandler{DB: db}
}

// Stats returns the dashboard row counts.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.DB.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers returns all users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.DB.ListUsers()
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]models.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, user.PublicProfile())
	}
	c.JSON(http.StatusOK, out)
}

// SetUserBlocked blocks or unblocks a user.
func (h *AdminHandler) SetUserBlocked(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var input struct {
		Blocked bool `json:"blocked"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.DB.SetUserBlocked(userID, input.Blocked); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated"})
}

// ListReports returns all filed reports.
func (h *AdminHandler) ListReports(c *gin.Context) {
	reports, err := h.DB.ListReports()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// DeleteItem removes any item, regardless of owner.
func (h *AdminHandler) DeleteItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	if err := h.DB.DeleteItem(itemID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}
