package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusshare/server/internal/models"
	"github.com/campusshare/server/internal/requests"
)

// RequestHandler exposes the item-request lifecycle.
type RequestHandler struct {
	Requests *requests.Service
}

func NewRequestHandler(svc *requests.Service) *RequestHandler {
	return &RequestHandler{Requests: svc}
}

// Submit creates a pending request for an item.
func (h *RequestHandler) Submit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.SubmitRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.Requests.Submit(input.ItemID, userID, input.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, req)
}

// List returns the caller's requests: ones they made and ones targeting
// their items.
func (h *RequestHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	reqs, err := h.Requests.ListForUser(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reqs)
}

// Accept transitions a pending request to accepted.
func (h *RequestHandler) Accept(c *gin.Context) {
	h.transition(c, h.Requests.Accept)
}

// Reject transitions a pending request to rejected.
func (h *RequestHandler) Reject(c *gin.Context) {
	h.transition(c, h.Requests.Reject)
}

// Complete transitions an accepted request to completed.
func (h *RequestHandler) Complete(c *gin.Context) {
	h.transition(c, h.Requests.Complete)
}

func (h *RequestHandler) transition(c *gin.Context, fn func(requestID, actorID uuid.UUID) (*models.ItemRequest, error)) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	requestID, err := uuid.Parse(c.Param("requestID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	req, err := fn(requestID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}
