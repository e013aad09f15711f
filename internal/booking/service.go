package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/item-share-backend/internal/item"
	"github.com/nekogravitycat/item-share-backend/internal/metrics"
	"github.com/nekogravitycat/item-share-backend/internal/pkg/paging"
	"github.com/nekogravitycat/item-share-backend/internal/user"
)

// UserDirectory resolves bookers and requesting users.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// ItemDirectory resolves items. Availability and ownership are always read
// through it at decision time.
type ItemDirectory interface {
	GetByID(ctx context.Context, id string) (*item.Item, error)
}

type CreateRequest struct {
	ItemID string
	Start  time.Time
	End    time.Time
}

type Service interface {
	Create(ctx context.Context, bookerID string, req CreateRequest) (*Booking, error)
	// Get returns the booking only to its booker or the item owner; anyone
	// else gets ErrNotFound.
	Get(ctx context.Context, id, requesterID string) (*Booking, error)
	ListByBooker(ctx context.Context, bookerID string, state State, page paging.Page) ([]*Booking, int, error)
	ListByOwner(ctx context.Context, ownerID string, state State, page paging.Page) ([]*Booking, int, error)
	Approve(ctx context.Context, id, actorID string) (*Booking, error)
	Reject(ctx context.Context, id, actorID string) (*Booking, error)
	UpdateApproval(ctx context.Context, id, actorID string, approved bool) (*Booking, error)
	Cancel(ctx context.Context, id, actorID string) error
	Delete(ctx context.Context, id string) error
	DeleteByItem(ctx context.Context, itemID string) error
}

type Option func(*service)

// WithClock replaces time.Now as the source of "now".
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *service) { s.publisher = p }
}

type service struct {
	repo      Repository
	users     UserDirectory
	items     ItemDirectory
	publisher EventPublisher
	logger    *zap.Logger
	locks     *itemLocks
	now       func() time.Time
}

func NewService(repo Repository, users UserDirectory, items ItemDirectory, logger *zap.Logger, opts ...Option) Service {
	s := &service{
		repo:      repo,
		users:     users,
		items:     items,
		publisher: nopPublisher{},
		logger:    logger,
		locks:     newItemLocks(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, bookerID string, req CreateRequest) (*Booking, error) {
	booker, err := s.lookupUser(ctx, bookerID)
	if err != nil {
		return nil, err
	}
	it, err := s.lookupItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if !it.Available {
		return nil, ErrItemUnavailable
	}
	if it.OwnerID == bookerID {
		return nil, ErrUserMismatch
	}

	rng, err := NewTimeRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if rng.Start.Before(s.now()) {
		return nil, ErrStartTimePast
	}

	unlock := s.locks.lock(it.ID)
	defer unlock()

	existing, err := s.repo.ListByItem(ctx, it.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item bookings: %w", err)
	}
	if err := CheckAvailability(rng, existing); err != nil {
		metrics.RecordOverlapRejection("validator")
		return nil, err
	}

	b := &Booking{
		ItemID:     it.ID,
		ItemName:   it.Name,
		OwnerID:    it.OwnerID,
		BookerID:   booker.ID,
		BookerName: booker.DisplayName,
		Range:      rng,
		Status:     StatusWaiting,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, ErrTimeOverlap) {
			metrics.RecordOverlapRejection("store")
		}
		return nil, err
	}

	metrics.RecordBookingTransition(string(b.Status))
	s.logger.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("item_id", b.ItemID),
		zap.String("booker_id", b.BookerID),
		zap.Stringer("range", b.Range),
	)
	s.publish(ctx, EventCreated, b)
	return b, nil
}

func (s *service) Get(ctx context.Context, id, requesterID string) (*Booking, error) {
	if _, err := s.lookupUser(ctx, requesterID); err != nil {
		return nil, err
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.VisibleTo(requesterID) {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *service) ListByBooker(ctx context.Context, bookerID string, state State, page paging.Page) ([]*Booking, int, error) {
	if _, err := s.lookupUser(ctx, bookerID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByBooker(ctx, bookerID, Query{State: state, Page: page, Now: s.now()})
}

func (s *service) ListByOwner(ctx context.Context, ownerID string, state State, page paging.Page) ([]*Booking, int, error) {
	if _, err := s.lookupUser(ctx, ownerID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByOwner(ctx, ownerID, Query{State: state, Page: page, Now: s.now()})
}

func (s *service) Approve(ctx context.Context, id, actorID string) (*Booking, error) {
	return s.decide(ctx, id, actorID, true)
}

func (s *service) Reject(ctx context.Context, id, actorID string) (*Booking, error) {
	return s.decide(ctx, id, actorID, false)
}

func (s *service) UpdateApproval(ctx context.Context, id, actorID string, approved bool) (*Booking, error) {
	return s.decide(ctx, id, actorID, approved)
}

func (s *service) decide(ctx context.Context, id, actorID string, approve bool) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	it, err := s.lookupItem(ctx, b.ItemID)
	if err != nil {
		return nil, err
	}

	from := b.Status
	evt := EventApproved
	if approve {
		err = b.Approve(actorID, it.OwnerID)
	} else {
		err = b.Reject(actorID, it.OwnerID)
		evt = EventRejected
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, b.ID, from, b.Status); err != nil {
		return nil, err
	}
	b.UpdatedAt = s.now().UTC()

	metrics.RecordBookingTransition(string(b.Status))
	s.logger.Info("booking decided",
		zap.String("booking_id", b.ID),
		zap.String("owner_id", actorID),
		zap.String("status", string(b.Status)),
	)
	s.publish(ctx, evt, b)
	return b, nil
}

func (s *service) Cancel(ctx context.Context, id, actorID string) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	from := b.Status
	if err := b.Cancel(actorID); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, b.ID, from, b.Status); err != nil {
		return err
	}

	metrics.RecordBookingTransition(string(b.Status))
	s.logger.Info("booking canceled", zap.String("booking_id", b.ID), zap.String("booker_id", actorID))
	s.publish(ctx, EventCanceled, b)
	return nil
}

// Delete hard-deletes a booking regardless of status or caller.
func (s *service) Delete(ctx context.Context, id string) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	metrics.RecordBookingsDeleted(1)
	s.logger.Info("booking deleted", zap.String("booking_id", id))
	s.publish(ctx, EventDeleted, b)
	return nil
}

func (s *service) DeleteByItem(ctx context.Context, itemID string) error {
	n, err := s.repo.DeleteByItem(ctx, itemID)
	if err != nil {
		return err
	}
	metrics.RecordBookingsDeleted(n)
	s.logger.Info("item bookings deleted", zap.String("item_id", itemID), zap.Int("count", n))
	return nil
}

func (s *service) lookupUser(ctx context.Context, id string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return u, nil
}

func (s *service) lookupItem(ctx context.Context, id string) (*item.Item, error) {
	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to look up item: %w", err)
	}
	return it, nil
}

// publish never fails the caller; the change is already committed.
func (s *service) publish(ctx context.Context, t EventType, b *Booking) {
	err := s.publisher.Publish(ctx, newEvent(t, b, s.now().UTC()))
	metrics.RecordEventPublished(string(t), err)
	if err != nil {
		s.logger.Warn("failed to publish booking event",
			zap.String("event_type", string(t)),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
}
