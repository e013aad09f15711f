package item

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nekogravitycat/item-share-backend/internal/pkg/paging"
	"github.com/nekogravitycat/item-share-backend/internal/user"
)

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetByID(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockBookingCleaner struct {
	mock.Mock
}

func (m *MockBookingCleaner) DeleteByItem(ctx context.Context, itemID string) error {
	return m.Called(ctx, itemID).Error(0)
}

func newTestService(t *testing.T) (Service, *MockUserDirectory, *MockBookingCleaner) {
	t.Helper()
	users := new(MockUserDirectory)
	cleaner := new(MockBookingCleaner)
	users.On("GetByID", mock.Anything, "owner").Return(&user.User{ID: "owner", DisplayName: "Olive"}, nil).Maybe()
	users.On("GetByID", mock.Anything, "ghost").Return(nil, user.ErrNotFound).Maybe()
	return NewService(NewMemoryRepository(), users, cleaner, zap.NewNop()), users, cleaner
}

func firstPage() paging.Page {
	p, _ := paging.New(0, 10)
	return p
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	it, err := svc.Create(ctx, "owner", CreateRequest{Name: " Drill ", Description: "cordless", Available: true})
	require.NoError(t, err)
	assert.NotEmpty(t, it.ID)
	assert.Equal(t, "Drill", it.Name)
	assert.Equal(t, "owner", it.OwnerID)

	_, err = svc.Create(ctx, "owner", CreateRequest{Name: "", Description: "x"})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.Create(ctx, "owner", CreateRequest{Name: "x", Description: " "})
	assert.ErrorIs(t, err, ErrEmptyDescription)

	_, err = svc.Create(ctx, "ghost", CreateRequest{Name: "x", Description: "y"})
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Create(ctx, "owner", CreateRequest{Name: "Power Drill", Description: "cordless", Available: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "owner", CreateRequest{Name: "Ladder", Description: "aluminium, fits a DRILL case", Available: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "owner", CreateRequest{Name: "Broken drill", Description: "for parts", Available: false})
	require.NoError(t, err)

	found, total, err := svc.Search(ctx, "drill", firstPage())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, found, 2)

	found, total, err = svc.Search(ctx, "   ", firstPage())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, found)
}

func TestService_UpdateOwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	it, err := svc.Create(ctx, "owner", CreateRequest{Name: "Tent", Description: "2 person", Available: true})
	require.NoError(t, err)

	unavailable := false
	_, err = svc.Update(ctx, "someone-else", it.ID, UpdateRequest{Available: &unavailable})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, "owner", it.ID, UpdateRequest{Available: &unavailable})
	require.NoError(t, err)
	assert.False(t, updated.Available)
	assert.Equal(t, "Tent", updated.Name)

	_, err = svc.Update(ctx, "owner", "missing", UpdateRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteCascadesBookings(t *testing.T) {
	ctx := context.Background()
	svc, _, cleaner := newTestService(t)

	it, err := svc.Create(ctx, "owner", CreateRequest{Name: "Kayak", Description: "single", Available: true})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "someone-else", it.ID), ErrForbidden)
	cleaner.AssertNotCalled(t, "DeleteByItem", mock.Anything, it.ID)

	cleaner.On("DeleteByItem", mock.Anything, it.ID).Return(nil).Once()
	require.NoError(t, svc.Delete(ctx, "owner", it.ID))
	cleaner.AssertExpectations(t)

	_, err = svc.GetByID(ctx, it.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteStopsWhenCleanupFails(t *testing.T) {
	ctx := context.Background()
	svc, _, cleaner := newTestService(t)

	it, err := svc.Create(ctx, "owner", CreateRequest{Name: "Canoe", Description: "double", Available: true})
	require.NoError(t, err)

	cleaner.On("DeleteByItem", mock.Anything, it.ID).Return(errors.New("db down")).Once()
	assert.Error(t, svc.Delete(ctx, "owner", it.ID))

	_, err = svc.GetByID(ctx, it.ID)
	assert.NoError(t, err)
}

func TestService_ListByOwnerPaging(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, "owner", CreateRequest{Name: name, Description: name, Available: true})
		require.NoError(t, err)
	}

	page, err := paging.New(2, 2)
	require.NoError(t, err)

	items, total, err := svc.ListByOwner(ctx, "owner", page)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 1)

	_, _, err = svc.ListByOwner(ctx, "ghost", page)
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}
