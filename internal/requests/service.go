// Package requests owns the item-request lifecycle: submission and the
// one-way pending/accepted/rejected/completed state machine, with the
// notification and eco-points side effects fired on transitions.
package requests

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
	// ErrEmptyMessage rejects a request with a blank message.
	ErrEmptyMessage = errors.New("request message cannot be empty")
	// ErrOwnItem rejects requesting one's own item.
	ErrOwnItem = errors.New("cannot request your own item")
	// ErrPermission means the actor may not perform this transition.
	ErrPermission = errors.New("not allowed to act on this request")
	// ErrInvalidTransition means the request is no longer in the state
	// the transition requires. Expected under races; surfaced to users
	// as "already handled".
	ErrInvalidTransition = errors.New("request already handled")
)

// Points credited to the giver when an exchange completes.
const completionPoints = 50

// transitions is the full lifecycle. Rejected and completed are
// terminal: they have no outgoing edges.
var transitions = map[models.RequestStatus]map[models.RequestStatus]bool{
	models.RequestPending: {
		models.RequestAccepted: true,
		models.RequestRejected: true,
	},
	models.RequestAccepted: {
		models.RequestCompleted: true,
	},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to models.RequestStatus) bool {
	return transitions[from][to]
}

// Store is the persistence surface the lifecycle manager needs.
type Store interface {
	GetUserByID(id uuid.UUID) (*models.User, error)
	GetItemByID(id uuid.UUID) (*models.Item, error)
	UpdateItemStatus(id uuid.UUID, status string) error
	CreateRequest(itemID, requesterID uuid.UUID, message string) (*models.ItemRequest, error)
	GetRequestByID(id uuid.UUID) (*models.ItemRequest, error)
	ListRequestsForUser(userID uuid.UUID) ([]*models.ItemRequest, error)
	TransitionRequest(id uuid.UUID, from, to models.RequestStatus) (bool, error)
	AddEcoPoints(userID uuid.UUID, delta int) error
}

// Notifier is the fan-out side effect target.
type Notifier interface {
	Notify(userID uuid.UUID, typ, title, message string) error
}

// Service is the request lifecycle manager.
type Service struct {
	store    Store
	notifier Notifier
	pub      events.Publisher
	log      *logger.Logger
}

func NewService(store Store, notifier Notifier, pub events.Publisher) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		pub:      pub,
		log:      logger.New("requests"),
	}
}

// Submit creates a pending request and notifies the item's owner.
// Existing pending requests for the same item do not block a new one;
// the owner picks among interested parties.
func (s *Service) Submit(itemID, requesterID uuid.UUID, message string) (*models.ItemRequest, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	item, err := s.store.GetItemByID(itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID == requesterID {
		return nil, ErrOwnItem
	}

	req, err := s.store.CreateRequest(itemID, requesterID, message)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if item.Status == models.ItemAvailable {
		if err := s.store.UpdateItemStatus(item.ID, models.ItemRequested); err != nil {
			s.log.Warn("marking item %s requested: %v", item.ID, err)
		}
	}

	requesterName := "Someone"
	if requester, err := s.store.GetUserByID(requesterID); err == nil {
		requesterName = requester.FullName
	}
	if err := s.notifier.Notify(item.UserID, models.NotifyRequestReceived,
		"New Request Received",
		fmt.Sprintf("%s requested your item %q.", requesterName, item.Title),
	); err != nil {
		s.log.Warn("notify owner of request %s: %v", req.ID, err)
	}

	s.publishChange(events.Insert, req)
	return req, nil
}

// Accept moves a pending request to accepted. Only the item's owner or
// an admin may accept.
func (s *Service) Accept(requestID, actorID uuid.UUID) (*models.ItemRequest, error) {
	return s.transition(requestID, actorID, models.RequestPending, models.RequestAccepted)
}

// Reject moves a pending request to rejected, a terminal state.
func (s *Service) Reject(requestID, actorID uuid.UUID) (*models.ItemRequest, error) {
	return s.transition(requestID, actorID, models.RequestPending, models.RequestRejected)
}

// Complete moves an accepted request to completed, credits the giver's
// eco points and marks the item given away. The compare-and-set guard
// means a second Complete fails before any side effect runs, so the
// credit fires exactly once per request.
func (s *Service) Complete(requestID, actorID uuid.UUID) (*models.ItemRequest, error) {
	req, err := s.transition(requestID, actorID, models.RequestAccepted, models.RequestCompleted)
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetItemByID(req.ItemID)
	if err != nil {
		s.log.Error("loading item %s after completion: %v", req.ItemID, err)
		return req, nil
	}

	if err := s.store.AddEcoPoints(item.UserID, completionPoints); err != nil {
		// The status write already committed; the credit is not retried
		// here to avoid double-crediting on ambiguous failures.
		s.log.Error("crediting eco points for request %s: %v", req.ID, err)
	}

	if err := s.store.UpdateItemStatus(item.ID, models.ItemGivenAway); err != nil {
		s.log.Warn("marking item %s given away: %v", item.ID, err)
	}

	return req, nil
}

// ListForUser returns the requests the user made and the ones targeting
// the user's items.
func (s *Service) ListForUser(userID uuid.UUID) ([]*models.ItemRequest, error) {
	return s.store.ListRequestsForUser(userID)
}

// transition runs the guarded state change shared by Accept, Reject and
// Complete: permission check, compare-and-set on the expected prior
// status, then the notification to the requester. A CAS miss surfaces
// as ErrInvalidTransition and leaves the request untouched.
func (s *Service) transition(requestID, actorID uuid.UUID, from, to models.RequestStatus) (*models.ItemRequest, error) {
	req, err := s.store.GetRequestByID(requestID)
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetItemByID(req.ItemID)
	if err != nil {
		return nil, err
	}

	actor, err := s.store.GetUserByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor.ID != item.UserID && !actor.IsAdmin {
		return nil, ErrPermission
	}

	if !CanTransition(from, to) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.store.TransitionRequest(requestID, from, to)
	if err != nil {
		return nil, fmt.Errorf("transitioning request %s to %s: %w", requestID, to, err)
	}
	if !updated {
		return nil, ErrInvalidTransition
	}
	req.Status = to

	typ, title, body := transitionNotice(to, item.Title)
	if err := s.notifier.Notify(req.RequesterID, typ, title, body); err != nil {
		s.log.Warn("notify requester for request %s: %v", req.ID, err)
	}

	s.publishChange(events.Update, req)
	return req, nil
}

func transitionNotice(to models.RequestStatus, itemTitle string) (typ, title, body string) {
	switch to {
	case models.RequestAccepted:
		return models.NotifyRequestAccepted, "Request Accepted",
			fmt.Sprintf("Your request for %q was accepted.", itemTitle)
	case models.RequestRejected:
		return models.NotifyRequestRejected, "Request Rejected",
			fmt.Sprintf("Your request for %q was rejected.", itemTitle)
	default:
		return models.NotifyExchangeCompleted, "Exchange Completed",
			fmt.Sprintf("Your exchange for %q is now completed.", itemTitle)
	}
}

func (s *Service) publishChange(kind events.Kind, req *models.ItemRequest) {
	s.pub.Publish(events.Change{
		Table: events.TableItemRequests,
		Kind:  kind,
		Cols: map[string]uuid.UUID{
			"requester_id": req.RequesterID,
			"item_id":      req.ItemID,
		},
		Payload: req,
	})
}
