package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusshare/server/internal/events"
	"github.com/campusshare/server/internal/models"
)

// MessageState tracks an optimistic send through its lifetime.
type MessageState int

const (
	// StatePending is a locally-echoed message not yet persisted.
	StatePending MessageState = iota
	// StateConfirmed is a message whose id and timestamp come from the
	// store.
	StateConfirmed
	// StateFailed marks an echo whose persist failed; it is removed from
	// the view before the caller ever observes it in this state.
	StateFailed
)

// SessionMessage is one display row of an open conversation. LocalID is
// the client-generated correlation id; for confirmed messages Msg.ID is
// the store-assigned id.
type SessionMessage struct {
	LocalID uuid.UUID
	State   MessageState
	Msg     models.ChatMessage
}

// Session is one open conversation. It owns the loaded history, marks
// incoming messages read, applies optimistic echoes on send, and follows
// the thread's live inserts until closed.
type Session struct {
	svc      *Service
	thread   *models.Thread
	viewerID uuid.UUID

	mu       sync.Mutex
	messages []SessionMessage
	closed   bool

	cancel    func()
	closeOnce sync.Once
	done      chan struct{}
}

// OpenSession loads the thread's history, marks it read for the viewer
// and attaches a live subscription filtered to the thread. The returned
// session must be closed when the conversation ends or the viewer
// switches threads.
func (s *Service) OpenSession(threadID, viewerID uuid.UUID) (*Session, error) {
	thread, err := s.store.GetThreadByID(threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(viewerID) {
		return nil, ErrNotParticipant
	}

	sess := &Session{
		svc:      s,
		thread:   thread,
		viewerID: viewerID,
		done:     make(chan struct{}),
	}

	if err := sess.reload(); err != nil {
		return nil, err
	}

	if err := s.store.MarkThreadRead(threadID, viewerID); err != nil {
		// Read-marking is retried on the next incoming message; history
		// is already loaded, so the session stays usable.
		s.log.Warn("mark read on open failed for thread %s: %v", threadID, err)
	} else {
		sess.markIncomingReadLocally()
	}

	ch, cancel := s.feed.Subscribe(events.Filter{
		Table:  events.TableChatMessages,
		Kind:   events.Insert,
		Equals: map[string]uuid.UUID{"thread_id": threadID},
	})
	sess.cancel = cancel
	go sess.pump(ch)

	return sess, nil
}

// Thread returns the conversation's thread.
func (sess *Session) Thread() *models.Thread {
	return sess.thread
}

// Messages returns a snapshot of the conversation in display order.
func (sess *Session) Messages() []SessionMessage {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]SessionMessage, len(sess.messages))
	copy(out, sess.messages)
	return out
}

// Unread counts messages from the counterparty still unread.
func (sess *Session) Unread() int {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	n := 0
	for _, m := range sess.messages {
		if m.Msg.SenderID != sess.viewerID && !m.Msg.IsRead {
			n++
		}
	}
	return n
}

// Send validates the text, projects an optimistic echo, persists the
// message and reconciles the echo with the stored row. On a store
// failure the echo is retracted and the full history reloaded so the
// view never shows a message of ambiguous fate.
func (sess *Session) Send(text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	localID := uuid.New()
	echo := SessionMessage{
		LocalID: localID,
		State:   StatePending,
		Msg: models.ChatMessage{
			ID:        localID,
			ThreadID:  sess.thread.ID,
			SenderID:  sess.viewerID,
			Body:      text,
			IsRead:    true,
			CreatedAt: time.Now().UTC(),
		},
	}

	sess.mu.Lock()
	sess.messages = append(sess.messages, echo)
	sess.mu.Unlock()

	msg, err := sess.svc.store.AppendMessage(sess.thread.ID, sess.viewerID, text)
	if err != nil {
		sess.retract(localID)
		if rerr := sess.reload(); rerr != nil {
			sess.svc.log.Error("reload after failed send on thread %s: %v", sess.thread.ID, rerr)
		}
		return nil, fmt.Errorf("sending message: %w", err)
	}

	sess.confirm(localID, msg)
	sess.svc.publishMessage(msg)
	return msg, nil
}

// Close cancels the live subscription. Safe to call more than once.
// In-flight sends are not cancelled; they complete or fail on their own.
func (sess *Session) Close() {
	sess.closeOnce.Do(func() {
		sess.mu.Lock()
		sess.closed = true
		sess.mu.Unlock()
		if sess.cancel != nil {
			sess.cancel()
		}
		<-sess.done
	})
}

func (sess *Session) pump(ch <-chan events.Change) {
	defer close(sess.done)
	for change := range ch {
		msg, ok := changeMessage(change)
		if !ok {
			continue
		}
		sess.handleInsert(msg)
	}
}

// handleInsert applies one live-delivered message. Replays and the echo
// of the session's own sends are deduped by persisted id; counterparty
// messages are marked read immediately since the viewer has the
// conversation open.
func (sess *Session) handleInsert(msg *models.ChatMessage) {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	for _, existing := range sess.messages {
		if existing.Msg.ID == msg.ID {
			sess.mu.Unlock()
			return
		}
	}

	incoming := *msg
	fromOther := incoming.SenderID != sess.viewerID
	if fromOther {
		incoming.IsRead = true
	}
	sess.insertOrdered(SessionMessage{
		LocalID: uuid.New(),
		State:   StateConfirmed,
		Msg:     incoming,
	})
	sess.mu.Unlock()

	if fromOther {
		if err := sess.svc.store.MarkThreadRead(sess.thread.ID, sess.viewerID); err != nil {
			sess.svc.log.Warn("mark read on live insert failed for thread %s: %v", sess.thread.ID, err)
		}
	}
}

// insertOrdered places a confirmed message so display order stays
// non-decreasing in the store's timestamps. The feed normally appends,
// so the walk terminates almost immediately. Caller holds mu.
func (sess *Session) insertOrdered(sm SessionMessage) {
	i := len(sess.messages)
	for i > 0 && sess.messages[i-1].Msg.CreatedAt.After(sm.Msg.CreatedAt) {
		i--
	}
	sess.messages = append(sess.messages, SessionMessage{})
	copy(sess.messages[i+1:], sess.messages[i:])
	sess.messages[i] = sm
}

// reload replaces the session's view with the store's full history.
func (sess *Session) reload() error {
	history, err := sess.svc.store.ListMessages(sess.thread.ID)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	loaded := make([]SessionMessage, 0, len(history))
	for _, msg := range history {
		loaded = append(loaded, SessionMessage{
			LocalID: uuid.New(),
			State:   StateConfirmed,
			Msg:     *msg,
		})
	}

	sess.mu.Lock()
	sess.messages = loaded
	sess.mu.Unlock()
	return nil
}

func (sess *Session) markIncomingReadLocally() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for i := range sess.messages {
		if sess.messages[i].Msg.SenderID != sess.viewerID {
			sess.messages[i].Msg.IsRead = true
		}
	}
}

func (sess *Session) retract(localID uuid.UUID) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for i := range sess.messages {
		if sess.messages[i].LocalID == localID {
			sess.messages[i].State = StateFailed
			sess.messages = append(sess.messages[:i], sess.messages[i+1:]...)
			return
		}
	}
}

func (sess *Session) confirm(localID uuid.UUID, msg *models.ChatMessage) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for i := range sess.messages {
		if sess.messages[i].LocalID == localID {
			sess.messages[i].State = StateConfirmed
			sess.messages[i].Msg.ID = msg.ID
			sess.messages[i].Msg.CreatedAt = msg.CreatedAt
			return
		}
	}
}

func changeMessage(change events.Change) (*models.ChatMessage, bool) {
	switch payload := change.Payload.(type) {
	case *models.ChatMessage:
		return payload, true
	case models.ChatMessage:
		return &payload, true
	default:
		return nil, false
	}
}
