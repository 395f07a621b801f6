package models

import (
	"time"

	"github.com/google/uuid"
)

// Thread binds a requester and an owner to one subject, which is either
// an item or a lost & found post but never both. For a given
// (subject, requester, owner) tuple at most one thread exists; the store
// enforces this with partial unique indexes so concurrent resolution
// converges on a single row.
type Thread struct {
	ID          uuid.UUID  `json:"id"`
	ItemID      *uuid.UUID `json:"item_id,omitempty"`
	LostFoundID *uuid.UUID `json:"lost_found_id,omitempty"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	RequesterID uuid.UUID  `json:"requester_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Counterparty returns the other participant from the viewer's side.
func (t *Thread) Counterparty(viewerID uuid.UUID) uuid.UUID {
	if t.OwnerID == viewerID {
		return t.RequesterID
	}
	return t.OwnerID
}

// HasParticipant reports whether the user is one of the two parties.
func (t *Thread) HasParticipant(userID uuid.UUID) bool {
	return t.OwnerID == userID || t.RequesterID == userID
}

// ChatMessage is one message in a thread. Messages are append-only:
// the only mutation ever applied is flipping IsRead to true, done by the
// non-sender. CreatedAt is assigned by the store and is the ordering
// authority within a thread.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	ThreadID  uuid.UUID `json:"thread_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the payload for posting a message to a thread.
type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// ResolveThreadRequest asks for the canonical thread for a subject.
// Exactly one of ItemID/LostFoundID must be set.
type ResolveThreadRequest struct {
	ItemID      *uuid.UUID `json:"item_id"`
	LostFoundID *uuid.UUID `json:"lost_found_id"`
	OwnerID     uuid.UUID  `json:"owner_id" binding:"required"`
}
