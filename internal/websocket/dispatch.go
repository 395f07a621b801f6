package websocket

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/campusshare/server/internal/events"
	"github.com/campusshare/server/internal/models"
)

// ThreadLookup resolves a thread so message inserts can be routed to
// both participants.
type ThreadLookup interface {
	GetThreadByID(id uuid.UUID) (*models.Thread, error)
}

// push is the wire form of one server push.
type push struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Dispatch subscribes to the change feed and routes events to connected
// users: notifications to their addressee, chat message inserts to both
// thread participants, request changes to the requester. Runs until ctx
// is done.
func Dispatch(ctx context.Context, m *Manager, feed interface {
	Subscribe(events.Filter) (<-chan events.Change, func())
}, threads ThreadLookup) {
	ch, cancel := feed.Subscribe(events.Filter{})
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			dispatchOne(m, threads, change)
		}
	}
}

func dispatchOne(m *Manager, threads ThreadLookup, change events.Change) {
	switch change.Table {
	case events.TableNotifications:
		if userID, ok := change.Cols["user_id"]; ok {
			send(m, userID, push{Type: "notification", Payload: change.Payload})
		}
	case events.TableChatMessages:
		threadID, ok := change.Cols["thread_id"]
		if !ok {
			return
		}
		thread, err := threads.GetThreadByID(threadID)
		if err != nil {
			log.Warn("cannot route message for thread %s: %v", threadID, err)
			return
		}
		payload := push{Type: "chat_message", Payload: change.Payload}
		send(m, thread.OwnerID, payload)
		send(m, thread.RequesterID, payload)
	case events.TableItemRequests:
		if requesterID, ok := change.Cols["requester_id"]; ok {
			send(m, requesterID, push{Type: "request_update", Payload: change.Payload})
		}
	}
}

func send(m *Manager, userID uuid.UUID, p push) {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Error("marshal push: %v", err)
		return
	}
	m.SendToUser(userID, raw)
}
