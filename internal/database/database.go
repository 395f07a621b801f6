package database

import (
	"errors"

	"github.com/google/uuid"

	"github.com/campusshare/server/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrItemNotFound         = errors.New("item not found")
	ErrRequestNotFound      = errors.New("request not found")
	ErrThreadNotFound       = errors.New("thread not found")
	ErrLostFoundNotFound    = errors.New("lost & found post not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Store is the full persistence surface of the server. PostgresStore is
// the production implementation; tests substitute mocks.
type Store interface {
	// User methods
	CreateUser(email, passwordHash, fullName, collegeName, phone string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uuid.UUID) (*models.User, error)
	UpdateLastSeen(userID uuid.UUID) error
	ListUsers() ([]*models.User, error)
	SetUserBlocked(userID uuid.UUID, blocked bool) error

	// Item methods
	CreateItem(userID uuid.UUID, in models.ItemInput) (*models.Item, error)
	GetItemByID(id uuid.UUID) (*models.Item, error)
	ListItems() ([]*models.Item, error)
	UpdateItem(id uuid.UUID, in models.ItemInput) (*models.Item, error)
	UpdateItemStatus(id uuid.UUID, status string) error
	DeleteItem(id uuid.UUID) error

	// Item request methods. TransitionRequest is a compare-and-set: the
	// status is changed only if it still equals from, and the first
	// return reports whether a row was updated.
	CreateRequest(itemID, requesterID uuid.UUID, message string) (*models.ItemRequest, error)
	GetRequestByID(id uuid.UUID) (*models.ItemRequest, error)
	ListRequestsForUser(userID uuid.UUID) ([]*models.ItemRequest, error)
	TransitionRequest(id uuid.UUID, from, to models.RequestStatus) (bool, error)

	// Lost & found methods
	CreateLostFound(userID uuid.UUID, in models.LostFoundInput) (*models.LostFoundPost, error)
	GetLostFoundByID(id uuid.UUID) (*models.LostFoundPost, error)
	ListLostFound(kind string) ([]*models.LostFoundPost, error)
	UpdateLostFoundStatus(id uuid.UUID, status string) error

	// Chat methods. GetOrCreateThread is atomic find-or-create under the
	// thread uniqueness constraint.
	GetOrCreateThread(itemID, lostFoundID *uuid.UUID, requesterID, ownerID uuid.UUID) (*models.Thread, error)
	GetThreadByID(id uuid.UUID) (*models.Thread, error)
	ListThreadsForUser(userID uuid.UUID) ([]*models.Thread, error)
	ListMessages(threadID uuid.UUID) ([]*models.ChatMessage, error)
	AppendMessage(threadID, senderID uuid.UUID, body string) (*models.ChatMessage, error)
	MarkThreadRead(threadID, readerID uuid.UUID) error

	// Notification methods
	CreateNotification(userID uuid.UUID, typ, title, message string) (*models.Notification, error)
	ListNotifications(userID uuid.UUID) ([]*models.Notification, error)
	MarkNotificationRead(id, userID uuid.UUID) error
	MarkAllNotificationsRead(userID uuid.UUID) error

	// Eco points / leaderboard
	AddEcoPoints(userID uuid.UUID, delta int) error
	TopEcoPoints(limit int) ([]*models.LeaderboardEntry, error)

	// Reports and admin stats
	CreateReport(itemID, reporterID uuid.UUID, reason, details string) (*models.Report, error)
	ListReports() ([]*models.Report, error)
	Stats() (map[string]int, error)

	Close() error
}
