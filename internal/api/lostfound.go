package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusshare/server/internal/chat"
	"github.com/campusshare/server/internal/database"
	"github.com/campusshare/server/internal/models"
	"github.com/campusshare/server/internal/notify"
)

// LostFoundHandler handles lost & found posts. Contacting a poster
// reuses the chat resolver with the post as the thread's subject.
type LostFoundHandler struct {
	DB       database.Store
	Chat     *chat.Service
	Notifier *notify.Notifier
}

func NewLostFoundHandler(db database.Store, chatSvc *chat.Service, notifier *notify.Notifier) *LostFoundHandler {
	return &LostFoundHandler{DB: db, Chat: chatSvc, Notifier: notifier}
}

// List returns posts, optionally filtered by ?kind=lost|found.
func (h *LostFoundHandler) List(c *gin.Context) {
	kind := c.Query("kind")
	if kind != "" && kind != models.LostFoundLost && kind != models.LostFoundFound {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid kind"})
		return
	}

	posts, err := h.DB.ListLostFound(kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// Create posts a new lost/found notice.
func (h *LostFoundHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.LostFoundInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.DB.CreateLostFound(userID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// UpdateStatus moves a post to returned/resolved. Only the poster may.
func (h *LostFoundHandler) UpdateStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	postID, err := uuid.Parse(c.Param("postID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var input struct {
		Status string `json:"status" binding:"required,oneof=open returned resolved"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.DB.GetLostFoundByID(postID)
	if err != nil {
		respondError(c, err)
		return
	}
	if post.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your post"})
		return
	}

	if err := h.DB.UpdateLostFoundStatus(postID, input.Status); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

// Contact resolves a thread between the caller and the poster and
// notifies the poster.
func (h *LostFoundHandler) Contact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	postID, err := uuid.Parse(c.Param("postID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	post, err := h.DB.GetLostFoundByID(postID)
	if err != nil {
		respondError(c, err)
		return
	}

	thread, err := h.Chat.ResolveThread(chat.Subject{LostFoundID: &post.ID}, userID, post.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	callerName := "Someone"
	if caller, err := h.DB.GetUserByID(userID); err == nil {
		callerName = caller.FullName
	}
	if err := h.Notifier.Notify(post.UserID, models.NotifyLostFoundContact,
		"Someone Reached Out",
		callerName+" contacted you about \""+post.Title+"\".",
	); err != nil {
		log.Warn("notify poster of contact on post %s: %v", post.ID, err)
	}

	c.JSON(http.StatusOK, thread)
}
