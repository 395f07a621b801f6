package chat

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/campusshare/server/internal/models"
)

// SubjectInfo carries the display fields of a thread's subject.
type SubjectInfo struct {
	Kind     string    `json:"kind"` // "item" or "lost_found"
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	ImageURL string    `json:"image_url,omitempty"`
}

// ThreadSummary is one inbox row: the thread plus everything the list
// view shows.
type ThreadSummary struct {
	Thread       *models.Thread      `json:"thread"`
	Subject      SubjectInfo         `json:"subject"`
	Counterparty models.UserResponse `json:"counterparty"`
	LastMessage  *models.ChatMessage `json:"last_message,omitempty"`
	Unread       int                 `json:"unread"`
}

// ListInbox returns all the user's threads, newest first, each with its
// last message and unread count. The counts are recomputed from the full
// message set on every call rather than kept as running counters.
func (s *Service) ListInbox(userID uuid.UUID) ([]*ThreadSummary, error) {
	threads, err := s.store.ListThreadsForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}

	summaries := make([]*ThreadSummary, 0, len(threads))
	for _, thread := range threads {
		summary, err := s.summarize(thread, userID)
		if err != nil {
			// A thread with a vanished subject or counterparty is not
			// worth failing the whole inbox over.
			s.log.Warn("skipping thread %s: %v", thread.ID, err)
			continue
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *Service) summarize(thread *models.Thread, viewerID uuid.UUID) (*ThreadSummary, error) {
	var subject SubjectInfo
	switch {
	case thread.ItemID != nil:
		item, err := s.store.GetItemByID(*thread.ItemID)
		if err != nil {
			return nil, fmt.Errorf("loading item subject: %w", err)
		}
		subject = SubjectInfo{Kind: "item", ID: item.ID, Title: item.Title, ImageURL: item.ImageURL}
	case thread.LostFoundID != nil:
		post, err := s.store.GetLostFoundByID(*thread.LostFoundID)
		if err != nil {
			return nil, fmt.Errorf("loading lost & found subject: %w", err)
		}
		subject = SubjectInfo{Kind: "lost_found", ID: post.ID, Title: post.Title, ImageURL: post.ImageURL}
	default:
		return nil, fmt.Errorf("thread %s has no subject", thread.ID)
	}

	other, err := s.store.GetUserByID(thread.Counterparty(viewerID))
	if err != nil {
		return nil, fmt.Errorf("loading counterparty: %w", err)
	}

	messages, err := s.store.ListMessages(thread.ID)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}

	var last *models.ChatMessage
	if len(messages) > 0 {
		last = messages[len(messages)-1]
	}

	unread := 0
	for _, msg := range messages {
		if msg.SenderID != viewerID && !msg.IsRead {
			unread++
		}
	}

	return &ThreadSummary{
		Thread:       thread,
		Subject:      subject,
		Counterparty: other.PublicProfile(),
		LastMessage:  last,
		Unread:       unread,
	}, nil
}
