// Package events provides the change-notification feed the rest of the
// server consumes: every committed write to a watched table is published
// as a Change, and consumers subscribe with a table/kind/column filter.
// Delivery is at-least-once after commit; subscribers must tolerate
// duplicates.
package events

import "github.com/google/uuid"

// Kind is the type of row change.
type Kind string

const (
	Insert Kind = "insert"
	Update Kind = "update"
	Delete Kind = "delete"
)

// Watched table names.
const (
	TableItems         = "items"
	TableItemRequests  = "item_requests"
	TableLostFound     = "lost_found"
	TableChatThreads   = "chat_threads"
	TableChatMessages  = "chat_messages"
	TableNotifications = "notifications"
	TableReports       = "reports"
)

// Change is one committed row change. Payload carries the row in its
// post-change state; column values used for filtering are duplicated in
// Cols so filters need not understand every payload shape.
type Change struct {
	Table   string               `json:"table"`
	Kind    Kind                 `json:"kind"`
	Cols    map[string]uuid.UUID `json:"cols,omitempty"`
	Payload interface{}          `json:"payload,omitempty"`
}

// Filter selects the changes a subscriber wants. Zero-valued fields
// match everything; Equals requires the named columns to carry the given
// ids.
type Filter struct {
	Table  string
	Kind   Kind
	Equals map[string]uuid.UUID
}

// Matches reports whether a change passes the filter.
func (f Filter) Matches(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if f.Kind != "" && f.Kind != c.Kind {
		return false
	}
	for col, want := range f.Equals {
		if c.Cols[col] != want {
			return false
		}
	}
	return true
}

// Publisher is the producing side of the feed. Services publish after a
// successful store write.
type Publisher interface {
	Publish(Change) int
}
