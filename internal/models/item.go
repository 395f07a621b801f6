package models

import (
	"time"

	"github.com/google/uuid"
)

// Item statuses follow the give-away flow: an item starts available,
// becomes requested when someone asks for it and given-away once an
// exchange completes.
const (
	ItemAvailable = "available"
	ItemRequested = "requested"
	ItemGivenAway = "given-away"
)

// Item is something a user wants to give away.
type Item struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Condition      string    `json:"condition"`
	ImageURL       string    `json:"image_url,omitempty"`
	PickupLocation string    `json:"pickup_location,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// ItemInput is the payload for posting or editing an item.
type ItemInput struct {
	Title          string `json:"title" binding:"required,min=2,max=120"`
	Description    string `json:"description" binding:"required"`
	Category       string `json:"category" binding:"required,oneof=books gadgets clothes furniture stationery other"`
	Condition      string `json:"condition" binding:"required,oneof=new like-new good fair"`
	ImageURL       string `json:"image_url"`
	PickupLocation string `json:"pickup_location"`
}

// Lost & found post kinds and statuses.
const (
	LostFoundLost  = "lost"
	LostFoundFound = "found"

	LostFoundOpen     = "open"
	LostFoundReturned = "returned"
	LostFoundResolved = "resolved"
)

// LostFoundPost is a lost or found notice. It reuses the chat machinery:
// contacting the poster resolves a thread keyed by the post.
type LostFoundPost struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Location    string    `json:"location,omitempty"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// LostFoundInput is the payload for posting a lost/found notice.
type LostFoundInput struct {
	Title       string `json:"title" binding:"required,min=2,max=120"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Location    string `json:"location"`
	Kind        string `json:"kind" binding:"required,oneof=lost found"`
}

// Report is a user complaint about an item.
type Report struct {
	ID         uuid.UUID `json:"id"`
	ItemID     uuid.UUID `json:"item_id"`
	ReporterID uuid.UUID `json:"reporter_id"`
	Reason     string    `json:"reason"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// LeaderboardEntry is one row of the eco-points leaderboard.
type LeaderboardEntry struct {
	UserID      uuid.UUID `json:"user_id"`
	Points      int       `json:"points"`
	FullName    string    `json:"full_name"`
	CollegeName string    `json:"college_name,omitempty"`
}
