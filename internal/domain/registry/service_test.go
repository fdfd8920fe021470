package registry_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/repository"
	"github.com/rpggio/saraban/internal/repository/mocks"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Format(t *testing.T) {
	require.Equal(t, "ORD 007/2568", registry.Template{Prefix: "ORD ", Width: 3, Separator: "/"}.Format(7, "2568"))
	require.Equal(t, "IN 0012-2568", registry.Template{Prefix: "IN ", Width: 4, Separator: "-"}.Format(12, "2568"))
	require.Equal(t, "12345/2568", registry.Template{Width: 3}.Format(12345, "2568"))
	require.Equal(t, "X5", registry.Template{Prefix: "X"}.Format(5, ""))
}

func TestTemplate_Limit(t *testing.T) {
	require.Equal(t, int64(math.MaxInt64), registry.Template{}.Limit())
	require.Equal(t, int64(999), registry.Template{MaxSequence: 999}.Limit())
}

func TestScopeFor(t *testing.T) {
	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }

	require.Equal(t, "2568", registry.ScopeFor(at(2025, time.September, 30), registry.CalendarFiscalBE))
	require.Equal(t, "2569", registry.ScopeFor(at(2025, time.October, 1), registry.CalendarFiscalBE))
	require.Equal(t, "2567", registry.ScopeFor(at(2025, time.May, 15), registry.CalendarAcademicBE))
	require.Equal(t, "2568", registry.ScopeFor(at(2025, time.May, 16), registry.CalendarAcademicBE))
	require.Equal(t, "2568", registry.ScopeFor(at(2025, time.January, 1), registry.CalendarCalendarBE))
	require.Equal(t, "2025", registry.ScopeFor(at(2025, time.December, 31), registry.CalendarCalendarCE))
}

func TestRegistryService_Allocate(t *testing.T) {
	ctx := context.Background()
	store := &mocks.SequenceStore{}
	key := registry.Key{Category: "order", ScopeKey: "2568"}
	store.On("Next", ctx, "school1", key, int64(math.MaxInt64)).Return(int64(7), nil)

	svc := registry.NewService(store, nil, nil, nil)
	number, err := svc.Allocate(ctx, "school1", "order", "2568")
	require.NoError(t, err)
	require.Equal(t, "ORD 007/2568", number)
}

func TestRegistryService_AllocateExhausted(t *testing.T) {
	ctx := context.Background()
	store := &mocks.SequenceStore{}
	key := registry.Key{Category: "order", ScopeKey: "2568"}
	store.On("Next", ctx, "school1", key, int64(999)).Return(int64(0), repository.ErrExhausted)

	svc := registry.NewService(store, map[string]registry.Template{
		"order": {Prefix: "ORD ", Width: 3, Separator: "/", MaxSequence: 999},
	}, nil, nil)
	_, err := svc.Allocate(ctx, "school1", "order", "2568")
	require.ErrorIs(t, err, registry.ErrAllocationExhausted)
}

func TestRegistryService_Preview(t *testing.T) {
	ctx := context.Background()
	store := &mocks.SequenceStore{}
	key := registry.Key{Category: "incoming_letter", ScopeKey: "2568"}
	store.On("Peek", ctx, "school1", key).Return(int64(41), nil)

	svc := registry.NewService(store, nil, nil, nil)
	number, err := svc.Preview(ctx, "school1", "incoming_letter", "2568")
	require.NoError(t, err)
	require.Equal(t, "IN 0042/2568", number)
	store.AssertNumberOfCalls(t, "Next", 0)
}

func TestRegistryService_RejectsBadInput(t *testing.T) {
	svc := registry.NewService(&mocks.SequenceStore{}, nil, nil, nil)

	_, err := svc.Allocate(context.Background(), "school1", "memo", "2568")
	require.ErrorIs(t, err, registry.ErrUnknownCategory)

	_, err = svc.Allocate(context.Background(), "school1", "order", " ")
	require.ErrorIs(t, err, registry.ErrInvalidScope)

	_, err = svc.Preview(context.Background(), "school1", "order", "25 68")
	require.ErrorIs(t, err, registry.ErrInvalidScope)
}

func TestRegistryService_ReserveRelease(t *testing.T) {
	ctx := context.Background()
	store := &mocks.SequenceStore{}
	key := registry.Key{Category: "order", ScopeKey: "2568"}
	store.On("Next", ctx, "school1", key, int64(math.MaxInt64)).Return(int64(3), nil)
	store.On("Release", ctx, "school1", key, int64(3)).Return(true, nil).Once()

	svc := registry.NewService(store, nil, nil, nil)
	r, err := svc.Reserve(ctx, "school1", "order", "2568")
	require.NoError(t, err)
	require.Equal(t, registry.Reservation{Key: key, Seq: 3, Number: "ORD 003/2568"}, r)

	released, err := svc.Release(ctx, "school1", r)
	require.NoError(t, err)
	require.True(t, released)
	store.AssertExpectations(t)
}

func TestRegistryService_Plan(t *testing.T) {
	svc := registry.NewService(&mocks.SequenceStore{}, nil, nil, nil)

	plan, err := svc.Plan("internal_proposal", " 2568 ")
	require.NoError(t, err)
	require.Equal(t, registry.Key{Category: "internal_proposal", ScopeKey: "2568"}, plan.Key)
	require.Equal(t, "MEMO 0010/2568", plan.Format(10))
}
