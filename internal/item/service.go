package item

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nekogravitycat/item-share-backend/internal/pkg/paging"
	"github.com/nekogravitycat/item-share-backend/internal/user"
)

type CreateRequest struct {
	Name        string
	Description string
	Available   bool
}

type UpdateRequest struct {
	Name        *string
	Description *string
	Available   *bool
}

// UserDirectory resolves item owners.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// BookingCleaner removes every booking of an item before the item goes away.
type BookingCleaner interface {
	DeleteByItem(ctx context.Context, itemID string) error
}

type Service interface {
	Create(ctx context.Context, ownerID string, req CreateRequest) (*Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	ListByOwner(ctx context.Context, ownerID string, page paging.Page) ([]*Item, int, error)
	Search(ctx context.Context, text string, page paging.Page) ([]*Item, int, error)
	Update(ctx context.Context, actorID, id string, req UpdateRequest) (*Item, error)
	Delete(ctx context.Context, actorID, id string) error
}

type service struct {
	repo     Repository
	users    UserDirectory
	bookings BookingCleaner
	logger   *zap.Logger
}

func NewService(repo Repository, users UserDirectory, bookings BookingCleaner, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		users:    users,
		bookings: bookings,
		logger:   logger,
	}
}

func (s *service) Create(ctx context.Context, ownerID string, req CreateRequest) (*Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	if err := s.ensureUser(ctx, ownerID); err != nil {
		return nil, err
	}

	it := &Item{
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Available:   req.Available,
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}

	s.logger.Info("item created", zap.String("item_id", it.ID), zap.String("owner_id", ownerID))
	return it, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByOwner(ctx context.Context, ownerID string, page paging.Page) ([]*Item, int, error) {
	if err := s.ensureUser(ctx, ownerID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, Filter{OwnerID: ownerID, Page: page})
}

// Search matches available items by name or description, case-insensitively.
// Blank text matches nothing.
func (s *service) Search(ctx context.Context, text string, page paging.Page) ([]*Item, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []*Item{}, 0, nil
	}
	return s.repo.List(ctx, Filter{Text: text, Page: page})
}

func (s *service) Update(ctx context.Context, actorID, id string, req UpdateRequest) (*Item, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.OwnerID != actorID {
		return nil, ErrForbidden
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		it.Name = name
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, ErrEmptyDescription
		}
		it.Description = description
	}
	if req.Available != nil {
		it.Available = *req.Available
	}

	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *service) Delete(ctx context.Context, actorID, id string) error {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if it.OwnerID != actorID {
		return ErrForbidden
	}

	if err := s.bookings.DeleteByItem(ctx, id); err != nil {
		return fmt.Errorf("failed to delete bookings of item: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("item deleted", zap.String("item_id", id))
	return nil
}

func (s *service) ensureUser(ctx context.Context, id string) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrOwnerNotFound
		}
		return fmt.Errorf("failed to look up owner: %w", err)
	}
	return nil
}
