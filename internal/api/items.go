package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusshare/server/internal/database"
	"github.com/campusshare/server/internal/logger"
	"github.com/campusshare/server/internal/models"
)

var log = logger.New("api")

// ItemHandler handles the item catalog routes.
type ItemHandler struct {
	DB database.Store
}

func NewItemHandler(db database.Store) *ItemHandler {
	return &ItemHandler{DB: db}
}

// ListItems returns the full catalog, newest first.
func (h *ItemHandler) ListItems(c *gin.Context) {
	items, err := h.DB.ListItems()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreateItem posts a new item owned by the caller.
func (h *ItemHandler) CreateItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.ItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.DB.CreateItem(userID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// UpdateItem edits an item the caller owns.
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	existing, err := h.DB.GetItemByID(itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	if existing.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your item"})
		return
	}

	var input models.ItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.DB.UpdateItem(itemID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteItem removes an item the caller owns.
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	existing, err := h.DB.GetItemByID(itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	if existing.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your item"})
		return
	}

	if err := h.DB.DeleteItem(itemID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}

// ReportItem files a report against an item.
func (h *ItemHandler) ReportItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		ItemID  uuid.UUID `json:"item_id" binding:"required"`
		Reason  string    `json:"reason" binding:"required"`
		Details string    `json:"details"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.DB.GetItemByID(input.ItemID); err != nil {
		respondError(c, err)
		return
	}

	report, err := h.DB.CreateReport(input.ItemID, userID, input.Reason, input.Details)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// Leaderboard returns the top eco-points holders.
func (h *ItemHandler) Leaderboard(c *gin.Context) {
	entries, err := h.DB.TopEcoPoints(10)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
