// Package notify writes addressed notifications as side effects of
// lifecycle events. Delivery is fire-and-forget: callers log failures
// and move on, and duplicates are acceptable if an action is retried.
package notify

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/campusshare/server/internal/events"
	"github.com/campusshare/server/internal/logger"
	"github.com/campusshare/server/internal/models"
)

// Store is the persistence surface the notifier needs.
type Store interface {
	CreateNotification(userID uuid.UUID, typ, title, message string) (*models.Notification, error)
}

// Notifier enqueues notifications into a user's inbox and announces
// them on the change feed.
type Notifier struct {
	store Store
	pub   events.Publisher
	log   *logger.Logger
}

func New(store Store, pub events.Publisher) *Notifier {
	return &Notifier{
		store: store,
		pub:   pub,
		log:   logger.New("notify"),
	}
}

// Notify writes one addressed notification.
func (n *Notifier) Notify(userID uuid.UUID, typ, title, message string) error {
	notification, err := n.store.CreateNotification(userID, typ, title, message)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	n.pub.Publish(events.Change{
		Table:   events.TableNotifications,
		Kind:    events.Insert,
		Cols:    map[string]uuid.UUID{"user_id": userID},
		Payload: notification,
	})

	n.log.Debug("notified %s: %s", userID, typ)
	return nil
}
