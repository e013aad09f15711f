package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/item-share-backend/internal/item"
	"github.com/nekogravitycat/item-share-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/item-share-backend/internal/user"
)

// memoryRepository keeps bookings in a map and joins item and user data on
// every read, the same way the SQL store joins its tables.
type memoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
	users    UserDirectory
	items    ItemDirectory
}

// NewMemoryRepository returns a process-local Repository. users and items
// provide the booker name, item name and owner for reads.
func NewMemoryRepository(users UserDirectory, items ItemDirectory) Repository {
	return &memoryRepository{
		bookings: make(map[string]*Booking),
		users:    users,
		items:    items,
	}
}

// project returns a copy of b with the joined fields filled. ok is false
// when the item or booker no longer exists.
func (r *memoryRepository) project(ctx context.Context, b *Booking) (*Booking, bool, error) {
	it, err := r.items.GetByID(ctx, b.ItemID)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	u, err := r.users.GetByID(ctx, b.BookerID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	cp := *b
	cp.ItemName = it.Name
	cp.OwnerID = it.OwnerID
	cp.BookerName = u.DisplayName
	return &cp, true, nil
}

func (r *memoryRepository) Create(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var existing []*Booking
	for _, stored := range r.bookings {
		if stored.ItemID == b.ItemID {
			existing = append(existing, stored)
		}
	}
	if err := CheckAvailability(b.Range, existing); err != nil {
		return err
	}

	now := time.Now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now

	cp := *b
	cp.ItemName, cp.OwnerID, cp.BookerName = "", "", ""
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	stored, ok := r.bookings[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	b, ok, err := r.project(ctx, stored)
	if err != nil {
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, id string, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != from {
		return apperror.Wrap(ErrInvalidTransition, http.StatusBadRequest,
			fmt.Sprintf("cannot change booking status from %s to %s", stored.Status, to))
	}
	stored.Status = to
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *memoryRepository) DeleteByItem(_ context.Context, itemID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, stored := range r.bookings {
		if stored.ItemID == itemID {
			delete(r.bookings, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) ListByItem(ctx context.Context, itemID string) ([]*Booking, error) {
	return r.collect(ctx, func(b *Booking) bool { return b.ItemID == itemID })
}

func (r *memoryRepository) ListByBooker(ctx context.Context, bookerID string, q Query) ([]*Booking, int, error) {
	all, err := r.collect(ctx, func(b *Booking) bool { return b.BookerID == bookerID })
	if err != nil {
		return nil, 0, err
	}
	page, total := q.apply(all)
	return page, total, nil
}

func (r *memoryRepository) ListByOwner(ctx context.Context, ownerID string, q Query) ([]*Booking, int, error) {
	all, err := r.collect(ctx, func(b *Booking) bool { return b.OwnerID == ownerID })
	if err != nil {
		return nil, 0, err
	}
	page, total := q.apply(all)
	return page, total, nil
}

// collect projects every stored booking and keeps those keep accepts.
func (r *memoryRepository) collect(ctx context.Context, keep func(*Booking) bool) ([]*Booking, error) {
	r.mu.RLock()
	snapshot := make([]*Booking, 0, len(r.bookings))
	for _, stored := range r.bookings {
		cp := *stored
		snapshot = append(snapshot, &cp)
	}
	r.mu.RUnlock()

	var out []*Booking
	for _, stored := range snapshot {
		b, ok, err := r.project(ctx, stored)
		if err != nil {
			return nil, fmt.Errorf("list bookings failed: %w", err)
		}
		if ok && keep(b) {
			out = append(out, b)
		}
	}
	return out, nil
}
