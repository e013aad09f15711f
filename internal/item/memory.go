package item

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/item-share-backend/internal/pkg/paging"
)

type memoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewMemoryRepository returns a process-local Repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{items: make(map[string]*Item)}
}

func (r *memoryRepository) Create(_ context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	it.ID = uuid.NewString()
	it.CreatedAt = now
	it.UpdatedAt = now
	cp := *it
	r.items[it.ID] = &cp
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]*Item, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	text := strings.ToLower(filter.Text)
	var matched []*Item
	for _, it := range r.items {
		if filter.OwnerID != "" && it.OwnerID != filter.OwnerID {
			continue
		}
		if text != "" {
			if !it.Available {
				continue
			}
			if !strings.Contains(strings.ToLower(it.Name), text) &&
				!strings.Contains(strings.ToLower(it.Description), text) {
				continue
			}
		}
		cp := *it
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return paging.Slice(matched, filter.Page), len(matched), nil
}

func (r *memoryRepository) Update(_ context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[it.ID]; !ok {
		return ErrNotFound
	}
	it.UpdatedAt = time.Now().UTC()
	cp := *it
	r.items[it.ID] = &cp
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}
