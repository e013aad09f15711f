package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nekogravitycat/item-share-backend/internal/item"
	"github.com/nekogravitycat/item-share-backend/internal/pkg/paging"
	"github.com/nekogravitycat/item-share-backend/internal/user"
)

// Before every booking used below, so the past-start rule never interferes.
var fixedNow = time.Date(2024, time.December, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc       Service
	repo      Repository
	users     user.Repository
	items     item.Repository
	publisher *recordingPublisher
	clock     *time.Time

	owner  *user.User
	booker *user.User
	other  *user.User
	drill  *item.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		users:     user.NewMemoryRepository(),
		items:     item.NewMemoryRepository(),
		publisher: &recordingPublisher{},
	}
	now := fixedNow
	f.clock = &now
	f.repo = NewMemoryRepository(f.users, f.items)
	f.svc = NewService(f.repo, f.users, f.items, zap.NewNop(),
		WithClock(func() time.Time { return *f.clock }),
		WithPublisher(f.publisher),
	)

	f.owner = f.addUser(t, "owner@example.com", "Olive")
	f.booker = f.addUser(t, "booker@example.com", "Boris")
	f.other = f.addUser(t, "other@example.com", "Otto")

	f.drill = &item.Item{OwnerID: f.owner.ID, Name: "Drill", Description: "cordless", Available: true}
	require.NoError(t, f.items.Create(ctx, f.drill))
	return f
}

func (f *fixture) addUser(t *testing.T, email, name string) *user.User {
	t.Helper()
	u := &user.User{Email: email, DisplayName: name, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) book(t *testing.T, bookerID string, r TimeRange) *Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), bookerID, CreateRequest{ItemID: f.drill.ID, Start: r.Start, End: r.End})
	require.NoError(t, err)
	return b
}

func page(t *testing.T, from, size int) paging.Page {
	t.Helper()
	p, err := paging.New(from, size)
	require.NoError(t, err)
	return p
}

func TestService_CreateThenApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b := f.book(t, f.booker.ID, rng(10, 15))
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusWaiting, b.Status)
	assert.Equal(t, "Drill", b.ItemName)
	assert.Equal(t, "Boris", b.BookerName)
	assert.Equal(t, f.owner.ID, b.OwnerID)

	approved, err := f.svc.Approve(ctx, b.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	got, err := f.svc.Get(ctx, b.ID, f.booker.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	assert.Equal(t, []EventType{EventCreated, EventApproved}, f.publisher.types())
}

func TestService_OverlapRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.book(t, f.booker.ID, rng(10, 15))
	_, err := f.svc.Approve(ctx, first.ID, f.owner.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.other.ID, CreateRequest{ItemID: f.drill.ID, Start: at(12, 0), End: at(18, 0)})
	assert.ErrorIs(t, err, ErrTimeOverlap)
	assert.Contains(t, err.Error(), rng(10, 15).String())

	// Touching the end of the existing booking is fine.
	f.book(t, f.other.ID, rng(15, 18))
}

func TestService_RejectedAndCanceledFreeTheSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rejected := f.book(t, f.booker.ID, rng(10, 15))
	_, err := f.svc.Reject(ctx, rejected.ID, f.owner.ID)
	require.NoError(t, err)

	canceled := f.book(t, f.booker.ID, rng(10, 15))
	require.NoError(t, f.svc.Cancel(ctx, canceled.ID, f.booker.ID))

	f.book(t, f.other.ID, rng(10, 15))
}

func TestService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	unavailable := &item.Item{OwnerID: f.owner.ID, Name: "Saw", Description: "broken", Available: false}
	require.NoError(t, f.items.Create(ctx, unavailable))

	tests := []struct {
		name    string
		booker  string
		req     CreateRequest
		wantErr error
	}{
		{"unknown booker", "ghost", CreateRequest{ItemID: f.drill.ID, Start: at(1, 0), End: at(2, 0)}, ErrUserNotFound},
		{"unknown item", f.booker.ID, CreateRequest{ItemID: "nope", Start: at(1, 0), End: at(2, 0)}, ErrItemNotFound},
		{"unavailable item", f.booker.ID, CreateRequest{ItemID: unavailable.ID, Start: at(1, 0), End: at(2, 0)}, ErrItemUnavailable},
		{"self booking", f.owner.ID, CreateRequest{ItemID: f.drill.ID, Start: at(1, 0), End: at(2, 0)}, ErrUserMismatch},
		{"end before start", f.booker.ID, CreateRequest{ItemID: f.drill.ID, Start: at(2, 0), End: at(1, 0)}, ErrInvalidTimeRange},
		{"empty range", f.booker.ID, CreateRequest{ItemID: f.drill.ID, Start: at(2, 0), End: at(2, 0)}, ErrInvalidTimeRange},
		{"start in past", f.booker.ID, CreateRequest{ItemID: f.drill.ID, Start: fixedNow.Add(-time.Hour), End: fixedNow.Add(time.Hour)}, ErrStartTimePast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.booker, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, f.publisher.types())
}

func TestService_SelfBookingForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.owner.ID, CreateRequest{ItemID: f.drill.ID, Start: at(1, 0), End: at(2, 0)})
	assert.ErrorIs(t, err, ErrUserMismatch)

	all, total, err := f.svc.ListByOwner(context.Background(), f.owner.ID, StateAll, page(t, 0, 10))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, all)
}

func TestService_CancellationIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b := f.book(t, f.booker.ID, rng(10, 15))
	_, err := f.svc.Approve(ctx, b.ID, f.owner.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Cancel(ctx, b.ID, f.owner.ID), ErrForbidden)
	require.NoError(t, f.svc.Cancel(ctx, b.ID, f.booker.ID))

	assert.ErrorIs(t, f.svc.Cancel(ctx, b.ID, f.booker.ID), ErrInvalidTransition)
	_, err = f.svc.Approve(ctx, b.ID, f.owner.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Reject(ctx, b.ID, f.owner.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_CancelAfterStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b := f.book(t, f.booker.ID, rng(10, 15))
	*f.clock = at(12, 0)

	require.NoError(t, f.svc.Cancel(ctx, b.ID, f.booker.ID))
}

func TestService_DecisionAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b := f.book(t, f.booker.ID, rng(10, 15))

	_, err := f.svc.Approve(ctx, b.ID, f.booker.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateApproval(ctx, b.ID, f.other.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Approve(ctx, "missing", f.owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Cancel(ctx, "missing", f.booker.ID), ErrNotFound)

	got, err := f.svc.UpdateApproval(ctx, b.ID, f.owner.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
}

func TestService_GetHidesFromStrangers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b := f.book(t, f.booker.ID, rng(10, 15))

	_, err := f.svc.Get(ctx, b.ID, f.owner.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, b.ID, f.other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Get(ctx, b.ID, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_StateFilteredListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	pastB := f.book(t, f.booker.ID, rng(1, 3))
	currentB := f.book(t, f.booker.ID, rng(10, 15))
	futureB := f.book(t, f.booker.ID, rng(20, 25))
	_, err := f.svc.Reject(ctx, futureB.ID, f.owner.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, pastB.ID, f.owner.ID)
	require.NoError(t, err)

	*f.clock = at(12, 0)

	tests := []struct {
		state State
		want  []string
	}{
		{StateAll, []string{futureB.ID, currentB.ID, pastB.ID}},
		{StateCurrent, []string{currentB.ID}},
		{StatePast, []string{pastB.ID}},
		{StateFuture, []string{futureB.ID}},
		{StateWaiting, []string{currentB.ID}},
		{StateRejected, []string{futureB.ID}},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			byBooker, total, err := f.svc.ListByBooker(ctx, f.booker.ID, tt.state, page(t, 0, 10))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(byBooker))
			assert.Equal(t, len(tt.want), total)

			byOwner, _, err := f.svc.ListByOwner(ctx, f.owner.ID, tt.state, page(t, 0, 10))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(byOwner))
		})
	}

	none, _, err := f.svc.ListByBooker(ctx, f.other.ID, StateAll, page(t, 0, 10))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, _, err = f.svc.ListByBooker(ctx, "ghost", StateAll, page(t, 0, 10))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_PaginationStable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var created []string
	for day := 1; day <= 7; day++ {
		created = append(created, f.book(t, f.booker.ID, rng(day*2, day*2+1)).ID)
	}
	// Newest start first.
	var want []string
	for i := len(created) - 1; i >= 0; i-- {
		want = append(want, created[i])
	}

	var seen []string
	for from := 0; from < 7; from += 3 {
		got, total, err := f.svc.ListByBooker(ctx, f.booker.ID, StateAll, page(t, from, 3))
		require.NoError(t, err)
		assert.Equal(t, 7, total)
		seen = append(seen, ids(got)...)
	}
	assert.Equal(t, want, seen)

	// from=4, size=3 snaps back to the page starting at index 3.
	got, _, err := f.svc.ListByBooker(ctx, f.booker.ID, StateAll, page(t, 4, 3))
	require.NoError(t, err)
	assert.Equal(t, want[3:6], ids(got))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b := f.book(t, f.booker.ID, rng(10, 15))
	require.NoError(t, f.svc.Delete(ctx, b.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, b.ID), ErrNotFound)

	_, err := f.svc.Get(ctx, b.ID, f.booker.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []EventType{EventCreated, EventDeleted}, f.publisher.types())
}

func TestService_DeleteByItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.book(t, f.booker.ID, rng(1, 2))
	f.book(t, f.other.ID, rng(3, 4))

	require.NoError(t, f.svc.DeleteByItem(ctx, f.drill.ID))

	left, err := f.repo.ListByItem(ctx, f.drill.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestService_PublishFailureDoesNotFailCaller(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker unavailable")

	b := f.book(t, f.booker.ID, rng(10, 15))
	assert.Equal(t, StatusWaiting, b.Status)
}

func TestService_ConcurrentCreatesNeverOverlap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		overlaps  int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every request overlaps every other one.
			start := at(10, i%5)
			_, err := f.svc.Create(ctx, f.booker.ID, CreateRequest{ItemID: f.drill.ID, Start: start, End: at(11, 0)})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrTimeOverlap):
				overlaps++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, overlaps)

	stored, err := f.repo.ListByItem(ctx, f.drill.ID)
	require.NoError(t, err)
	for i, a := range stored {
		for _, b := range stored[i+1:] {
			if a.Status.Blocks() && b.Status.Blocks() {
				assert.False(t, a.Range.Overlaps(b.Range), "%s overlaps %s", a.Range, b.Range)
			}
		}
	}
}
