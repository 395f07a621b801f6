// Package chat implements conversation threads: resolving the canonical
// thread for a subject, the per-user inbox, and live conversation
// sessions with optimistic sends.
package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/campusshare/server/internal/events"
	"github.com/campusshare/server/internal/logger"
	"github.com/campusshare/server/internal/models"
)

var (
	// ErrBadSubject means the subject reference is missing or ambiguous.
	ErrBadSubject = errors.New("exactly one of item or lost & found post must be given")
	// ErrResolution means the thread could not be resolved to a valid
	// counterparty pair.
	ErrResolution = errors.New("unable to resolve conversation")
	// ErrEmptyMessage rejects blank or whitespace-only message bodies.
	ErrEmptyMessage = errors.New("message body cannot be empty")
	// ErrNotParticipant means the user is not a party to the thread.
	ErrNotParticipant = errors.New("user is not a participant of this thread")
)

// Store is the persistence surface the chat service needs.
type Store interface {
	GetUserByID(id uuid.UUID) (*models.User, error)
	GetItemByID(id uuid.UUID) (*models.Item, error)
	GetLostFoundByID(id uuid.UUID) (*models.LostFoundPost, error)
	GetOrCreateThread(itemID, lostFoundID *uuid.UUID, requesterID, ownerID uuid.UUID) (*models.Thread, error)
	GetThreadByID(id uuid.UUID) (*models.Thread, error)
	ListThreadsForUser(userID uuid.UUID) ([]*models.Thread, error)
	ListMessages(threadID uuid.UUID) ([]*models.ChatMessage, error)
	AppendMessage(threadID, senderID uuid.UUID, body string) (*models.ChatMessage, error)
	MarkThreadRead(threadID, readerID uuid.UUID) error
}

// Feed is the subscribing side of the change-notification feed.
type Feed interface {
	Subscribe(events.Filter) (<-chan events.Change, func())
}

// Subject points a thread at an item or a lost & found post.
type Subject struct {
	ItemID      *uuid.UUID
	LostFoundID *uuid.UUID
}

// Service coordinates threads and messages over the store and the
// change feed.
type Service struct {
	store Store
	pub   events.Publisher
	feed  Feed
	log   *logger.Logger
}

// NewService wires a chat service.
func NewService(store Store, pub events.Publisher, feed Feed) *Service {
	return &Service{
		store: store,
		pub:   pub,
		feed:  feed,
		log:   logger.New("chat"),
	}
}

// ResolveThread returns the single canonical thread for the subject and
// party pair, creating it if absent. Safe to call concurrently with
// identical arguments: the store's uniqueness constraint guarantees all
// callers get the same thread.
func (s *Service) ResolveThread(subject Subject, requesterID, ownerID uuid.UUID) (*models.Thread, error) {
	if (subject.ItemID == nil) == (subject.LostFoundID == nil) {
		return nil, ErrBadSubject
	}
	if requesterID == ownerID {
		return nil, fmt.Errorf("%w: cannot open a conversation with yourself", ErrResolution)
	}

	if _, err := s.store.GetUserByID(ownerID); err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrResolution, err)
	}
	if _, err := s.store.GetUserByID(requesterID); err != nil {
		return nil, fmt.Errorf("%w: requester: %v", ErrResolution, err)
	}

	// The subject must exist and actually belong to the claimed owner.
	if subject.ItemID != nil {
		item, err := s.store.GetItemByID(*subject.ItemID)
		if err != nil {
			return nil, fmt.Errorf("%w: item: %v", ErrResolution, err)
		}
		if item.UserID != ownerID {
			return nil, fmt.Errorf("%w: item does not belong to owner", ErrResolution)
		}
	} else {
		post, err := s.store.GetLostFoundByID(*subject.LostFoundID)
		if err != nil {
			return nil, fmt.Errorf("%w: lost & found post: %v", ErrResolution, err)
		}
		if post.UserID != ownerID {
			return nil, fmt.Errorf("%w: post does not belong to owner", ErrResolution)
		}
	}

	thread, err := s.store.GetOrCreateThread(subject.ItemID, subject.LostFoundID, requesterID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("resolving thread: %w", err)
	}

	s.pub.Publish(events.Change{
		Table: events.TableChatThreads,
		Kind:  events.Insert,
		Cols: map[string]uuid.UUID{
			"owner_id":     thread.OwnerID,
			"requester_id": thread.RequesterID,
		},
		Payload: thread,
	})

	return thread, nil
}

// ListMessages returns the full ordered history of a thread, oldest
// first, after checking the viewer is a participant.
func (s *Service) ListMessages(threadID, viewerID uuid.UUID) ([]*models.ChatMessage, error) {
	thread, err := s.store.GetThreadByID(threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(viewerID) {
		return nil, ErrNotParticipant
	}
	return s.store.ListMessages(threadID)
}

// SendMessage validates and persists one message, then publishes the
// insert on the change feed.
func (s *Service) SendMessage(threadID, senderID uuid.UUID, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}

	thread, err := s.store.GetThreadByID(threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	msg, err := s.store.AppendMessage(threadID, senderID, body)
	if err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	s.publishMessage(msg)
	return msg, nil
}

// MarkRead flips the unread messages the reader did not send. Idempotent.
func (s *Service) MarkRead(threadID, readerID uuid.UUID) error {
	thread, err := s.store.GetThreadByID(threadID)
	if err != nil {
		return err
	}
	if !thread.HasParticipant(readerID) {
		return ErrNotParticipant
	}
	return s.store.MarkThreadRead(threadID, readerID)
}

func (s *Service) publishMessage(msg *models.ChatMessage) {
	s.pub.Publish(events.Change{
		Table: events.TableChatMessages,
		Kind:  events.Insert,
		Cols: map[string]uuid.UUID{
			"thread_id": msg.ThreadID,
			"sender_id": msg.SenderID,
		},
		Payload: msg,
	})
}
