package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of an item request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// ItemRequest is a user's ask for someone else's item. Status moves
// one-way: pending to accepted or rejected, accepted to completed.
// Rejected and completed are terminal.
type ItemRequest struct {
	ID          uuid.UUID     `json:"id"`
	ItemID      uuid.UUID     `json:"item_id"`
	RequesterID uuid.UUID     `json:"requester_id"`
	Message     string        `json:"message"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// SubmitRequestInput is the payload for requesting an item.
type SubmitRequestInput struct {
	ItemID  uuid.UUID `json:"item_id" binding:"required"`
	Message string    `json:"message" binding:"required"`
}

// Notification is addressed to a single user. Notifications are only
// ever created as the side effect of a lifecycle transition or a contact
// action, never directly by a user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification types emitted by the request lifecycle and contact flows.
const (
	NotifyRequestReceived   = "request_received"
	NotifyRequestAccepted   = "request_accepted"
	NotifyRequestRejected   = "request_rejected"
	NotifyExchangeCompleted = "exchange_completed"
	NotifyLostFoundContact  = "lostfound_contact"
)
