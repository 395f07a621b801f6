package api

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/campusshare/server/internal/models"
)

// MockDB implements the database.Store interface for testing
type MockDB struct {
	mock.Mock
}

func (m *MockDB) CreateUser(email, passwordHash, fullName, collegeName, phone string) (*models.User, error) {
	args := m.Called(email, passwordHash, fullName, collegeName, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDB) GetUserByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDB) GetUserByID(id uuid.UUID) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDB) UpdateLastSeen(userID uuid.UUID) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockDB) ListUsers() ([]*models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockDB) SetUserBlocked(userID uuid.UUID, blocked bool) error {
	args := m.Called(userID, blocked)
	return args.Error(0)
}

func (m *MockDB) CreateItem(userID uuid.UUID, in models.ItemInput) (*models.Item, error) {
	args := m.Called(userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockDB) GetItemByID(id uuid.UUID) (*models.Item, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockDB) ListItems() ([]*models.Item, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Item), args.Error(1)
}

func (m *MockDB) UpdateItem(id uuid.UUID, in models.ItemInput) (*models.Item, error) {
	args := m.Called(id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockDB) UpdateItemStatus(id uuid.UUID, status string) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockDB) DeleteItem(id uuid.UUID) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockDB) CreateRequest(itemID, requesterID uuid.UUID, message string) (*models.ItemRequest, error) {
	args := m.Called(itemID, requesterID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItemRequest), args.Error(1)
}

func (m *MockDB) GetRequestByID(id uuid.UUID) (*models.ItemRequest, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItemRequest), args.Error(1)
}

func (m *MockDB) ListRequestsForUser(userID uuid.UUID) ([]*models.ItemRequest, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ItemRequest), args.Error(1)
}

func (m *MockDB) TransitionRequest(id uuid.UUID, from, to models.RequestStatus) (bool, error) {
	args := m.Called(id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockDB) CreateLostFound(userID uuid.UUID, in models.LostFoundInput) (*models.LostFoundPost, error) {
	args := m.Called(userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LostFoundPost), args.Error(1)
}

func (m *MockDB) GetLostFoundByID(id uuid.UUID) (*models.LostFoundPost, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LostFoundPost), args.Error(1)
}

func (m *MockDB) ListLostFound(kind string) ([]*models.LostFoundPost, error) {
	args := m.Called(kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LostFoundPost), args.Error(1)
}

func (m *MockDB) UpdateLostFoundStatus(id uuid.UUID, status string) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockDB) GetOrCreateThread(itemID, lostFoundID *uuid.UUID, requesterID, ownerID uuid.UUID) (*models.Thread, error) {
	args := m.Called(itemID, lostFoundID, requesterID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Thread), args.Error(1)
}

func (m *MockDB) GetThreadByID(id uuid.UUID) (*models.Thread, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Thread), args.Error(1)
}

func (m *MockDB) ListThreadsForUser(userID uuid.UUID) ([]*models.Thread, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Thread), args.Error(1)
}

func (m *MockDB) ListMessages(threadID uuid.UUID) ([]*models.ChatMessage, error) {
	args := m.Called(threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatMessage), args.Error(1)
}

func (m *MockDB) AppendMessage(threadID, senderID uuid.UUID, body string) (*models.ChatMessage, error) {
	args := m.Called(threadID, senderID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockDB) MarkThreadRead(threadID, readerID uuid.UUID) error {
	args := m.Called(threadID, readerID)
	return args.Error(0)
}

func (m *MockDB) CreateNotification(userID uuid.UUID, typ, title, message string) (*models.Notification, error) {
	args := m.Called(userID, typ, title, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockDB) ListNotifications(userID uuid.UUID) ([]*models.Notification, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockDB) MarkNotificationRead(id, userID uuid.UUID) error {
	args := m.Called(id, userID)
	return args.Error(0)
}

func (m *MockDB) MarkAllNotificationsRead(userID uuid.UUID) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockDB) AddEcoPoints(userID uuid.UUID, delta int) error {
	args := m.Called(userID, delta)
	return args.Error(0)
}

func (m *MockDB) TopEcoPoints(limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

func (m *MockDB) CreateReport(itemID, reporterID uuid.UUID, reason, details string) (*models.Report, error) {
	args := m.Called(itemID, reporterID, reason, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockDB) ListReports() ([]*models.Report, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Report), args.Error(1)
}

func (m *MockDB) Stats() (map[string]int, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockDB) Close() error {
	args := m.Called()
	return args.Error(0)
}
