package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campusshare/server/internal/events"
	"github.com/campusshare/server/internal/models"
)

type sessionFixture struct {
	store    *mockStore
	svc      *Service
	broker   *events.Broker
	thread   *models.Thread
	viewerID uuid.UUID
	otherID  uuid.UUID
}

func newSessionFixture(t *testing.T, history []*models.ChatMessage) *sessionFixture {
	t.Helper()

	viewerID := uuid.New()
	otherID := uuid.New()
	itemID := uuid.New()
	thread := &models.Thread{
		ID:          uuid.New(),
		ItemID:      ptr(itemID),
		OwnerID:     otherID,
		RequesterID: viewerID,
	}

	store := new(mockStore)
	svc, broker := newTestService(store)
	t.Cleanup(broker.Close)

	store.On("GetThreadByID", thread.ID).Return(thread, nil)
	store.On("ListMessages", thread.ID).Return(history, nil)
	store.On("MarkThreadRead", thread.ID, viewerID).Return(nil)

	return &sessionFixture{
		store:    store,
		svc:      svc,
		broker:   broker,
		thread:   thread,
		viewerID: viewerID,
		otherID:  otherID,
	}
}

func TestOpenSessionLoadsHistoryAndMarksRead(t *testing.T) {
	now := time.Now()
	f := newSessionFixture(t, []*models.ChatMessage{
		{ID: uuid.New(), SenderID: uuid.New(), Body: "hello", CreatedAt: now.Add(-time.Minute)},
		{ID: uuid.New(), SenderID: uuid.New(), Body: "anyone there?", CreatedAt: now},
	})

	sess, err := f.svc.OpenSession(f.thread.ID, f.viewerID)
	require.NoError(t, err)
	defer sess.Close()

	msgs := sess.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Msg.Body)
	assert.Equal(t, "anyone there?", msgs[1].Msg.Body)
	for _, m := range msgs {
		assert.Equal(t, StateConfirmed, m.State)
		assert.True(t, m.Msg.IsRead, "foreign history should be marked read locally")
	}
	assert.Equal(t, 0, sess.Unread())

	f.store.AssertCalled(t, "MarkThreadRead", f.thread.ID, f.viewerID)
}

func TestOpenSessionRejectsOutsider(t *testing.T) {
	f := newSessionFixture(t, nil)

	sess, err := f.svc.OpenSession(f.thread.ID, uuid.New())
	assert.Nil(t, sess)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestSessionSendConfirmsOptimisticEcho(t *testing.T) {
	f := newSessionFixture(t, []*models.ChatMessage{})

	stored := &models.ChatMessage{
		ID:        uuid.New(),
		ThreadID:  f.thread.ID,
		SenderID:  f.viewerID,
		Body:      "can I pick it up today?",
		CreatedAt: time.Now(),
	}
	f.store.On("AppendMessage", f.thread.ID, f.viewerID, "can I pick it up today?").Return(stored, nil)

	sess, err := f.svc.OpenSession(f.thread.ID, f.viewerID)
	require.NoError(t, err)
	defer sess.Close()

	msg, err := sess.Send("  can I pick it up today?  ")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, msg.ID)

	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, StateConfirmed, msgs[0].State)
	assert.Equal(t, stored.ID, msgs[0].Msg.ID, "echo should carry the store-assigned id after confirm")
	assert.Equal(t, stored.CreatedAt, msgs[0].Msg.CreatedAt)
}

func TestSessionSendEmpty(t *testing.T) {
	f := newSessionFixture(t, []*models.ChatMessage{})

	sess, err := f.svc.OpenSession(f.thread.ID, f.viewerID)
	require.NoError(t, err)
	defer sess.Close()

	msg, err := sess.Send("   ")
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, sess.Messages())
	f.store.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionSendFailureRetractsEcho(t *testing.T) {
	f := newSessionFixture(t, []*models.ChatMessage{})

	f.store.On("AppendMessage", f.thread.ID, f.viewerID, "doomed").Return(nil, errors.New("connection reset"))

	sess, err := f.svc.OpenSession(f.thread.ID, f.viewerID)
	require.NoError(t, err)
	defer sess.Close()

	msg, err := sess.Send("doomed")
	assert.Nil(t, msg)
	assert.Error(t, err)

	// The failed echo must not survive; the view is reloaded from the
	// store, which has nothing.
	assert.Empty(t, sess.Messages())
}

func TestSessionLiveInsertFromCounterparty(t *testing.T) {
	f := newSessionFixture(t, []*models.ChatMessage{})

	sess, err := f.svc.OpenSession(f.thread.ID, f.viewerID)
	require.NoError(t, err)
	defer sess.Close()

	incoming := &models.ChatMessage{
		ID:        uuid.New(),
		ThreadID:  f.thread.ID,
		SenderID:  f.otherID,
		Body:      "sure, 5pm works",
		CreatedAt: time.Now(),
	}
	f.broker.Publish(events.Change{
		Table:   events.TableChatMessages,
		Kind:    events.Insert,
		Cols:    map[string]uuid.UUID{"thread_id": f.thread.ID, "sender_id": f.otherID},
		Payload: incoming,
	})

	require.Eventually(t, func() bool {
		return len(sess.Messages()) == 1
	}, time.Second, 10*time.Millisecond, "live insert never reached the session")

	msgs := sess.Messages()
	assert.Equal(t, incoming.ID, msgs[0].Msg.ID)
	assert.True(t, msgs[0].Msg.IsRead, "counterparty message should be read immediately while the conversation is open")
	assert.Equal(t, 0, sess.Unread())
}

func TestSessionLiveInsertDedupesByID(t *testing.T) {
	f := newSessionFixture(t, []*models.ChatMessage{})

	sess, err := f.svc.OpenSession(f.thread.ID, f.viewerID)
	require.NoError(t, err)
	defer sess.Close()

	incoming := &models.ChatMessage{
		ID:        uuid.New(),
		ThreadID:  f.thread.ID,
		SenderID:  f.otherID,
		Body:      "delivered twice",
		CreatedAt: time.Now(),
	}
	change := events.Change{
		Table:   events.TableChatMessages,
		Kind:    events.Insert,
		Cols:    map[string]uuid.UUID{"thread_id": f.thread.ID},
		Payload: incoming,
	}
	f.broker.Publish(change)
	f.broker.Publish(change)

	require.Eventually(t, func() bool {
		return len(sess.Messages()) >= 1
	}, time.Second, 10*time.Millisecond)

	// Give the duplicate time to arrive, then confirm it was dropped.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sess.Messages(), 1)
}

func TestSessionIgnoresEchoOfOwnSend(t *testing.T) {
	f := newSessionFixture(t, []*models.ChatMessage{})

	stored := &models.ChatMessage{
		ID:        uuid.New(),
		ThreadID:  f.thread.ID,
		SenderID:  f.viewerID,
		Body:      "echo test",
		CreatedAt: time.Now(),
	}
	f.store.On("AppendMessage", f.thread.ID, f.viewerID, "echo test").Return(stored, nil)

	sess, err := f.svc.OpenSession(f.thread.ID, f.viewerID)
	require.NoError(t, err)
	defer sess.Close()

	// Send publishes the persisted row on the feed; the session's own
	// subscription replays it, and the replay must dedupe against the
	// confirmed echo.
	_, err = sess.Send("echo test")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sess.Messages(), 1)
}

func TestSessionOrderingFollowsStoreTimestamps(t *testing.T) {
	now := time.Now()
	f := newSessionFixture(t, []*models.ChatMessage{
		{ID: uuid.New(), SenderID: uuid.New(), Body: "newest in history", CreatedAt: now},
	})

	sess, err := f.svc.OpenSession(f.thread.ID, f.viewerID)
	require.NoError(t, err)
	defer sess.Close()

	// A late-delivered insert with an older store timestamp lands before
	// the newer history row.
	late := &models.ChatMessage{
		ID:        uuid.New(),
		ThreadID:  f.thread.ID,
		SenderID:  f.otherID,
		Body:      "older but late",
		CreatedAt: now.Add(-time.Minute),
	}
	f.broker.Publish(events.Change{
		Table:   events.TableChatMessages,
		Kind:    events.Insert,
		Cols:    map[string]uuid.UUID{"thread_id": f.thread.ID},
		Payload: late,
	})

	require.Eventually(t, func() bool {
		return len(sess.Messages()) == 2
	}, time.Second, 10*time.Millisecond)

	msgs := sess.Messages()
	assert.Equal(t, "older but late", msgs[0].Msg.Body)
	assert.Equal(t, "newest in history", msgs[1].Msg.Body)
}

func TestSessionCloseStopsDelivery(t *testing.T) {
	f := newSessionFixture(t, []*models.ChatMessage{})

	sess, err := f.svc.OpenSession(f.thread.ID, f.viewerID)
	require.NoError(t, err)

	sess.Close()
	// Closing twice must not panic or deadlock.
	sess.Close()

	f.broker.Publish(events.Change{
		Table: events.TableChatMessages,
		Kind:  events.Insert,
		Cols:  map[string]uuid.UUID{"thread_id": f.thread.ID},
		Payload: &models.ChatMessage{
			ID:       uuid.New(),
			ThreadID: f.thread.ID,
			SenderID: f.otherID,
			Body:     "too late",
		},
	})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sess.Messages())
}

func TestSessionFilterExcludesOtherThreads(t *testing.T) {
	f := newSessionFixture(t, []*models.ChatMessage{})

	sess, err := f.svc.OpenSession(f.thread.ID, f.viewerID)
	require.NoError(t, err)
	defer sess.Close()

	otherThread := uuid.New()
	f.broker.Publish(events.Change{
		Table: events.TableChatMessages,
		Kind:  events.Insert,
		Cols:  map[string]uuid.UUID{"thread_id": otherThread},
		Payload: &models.ChatMessage{
			ID:       uuid.New(),
			ThreadID: otherThread,
			SenderID: f.otherID,
			Body:     "different conversation",
		},
	})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sess.Messages())
}
