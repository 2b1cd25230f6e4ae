package capacity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acrivain/guardpost/pkg/core/model"
	"github.com/acrivain/guardpost/pkg/db/memstore"
)

func newTestStore(t *testing.T) (*Store, *memstore.Store) {
	t.Helper()
	mem := memstore.New()
	return NewStore(mem, mem, zap.NewNop()), mem
}

func seedShift(t *testing.T, mem *memstore.Store, id string, current, max int, status model.ShiftStatus) {
	t.Helper()
	err := mem.InsertShift(context.Background(), &model.Shift{
		ID:                  id,
		MinParticipants:     1,
		MaxParticipants:     max,
		CurrentParticipants: current,
		Status:              status,
	})
	require.NoError(t, err)
}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, model.ShiftFull, NextStatus(model.ShiftOpen, 3, 3))
	assert.Equal(t, model.ShiftOpen, NextStatus(model.ShiftFull, 2, 3))
	assert.Equal(t, model.ShiftOpen, NextStatus(model.ShiftOpen, 0, 3))
	assert.Equal(t, model.ShiftClosed, NextStatus(model.ShiftClosed, 2, 3))
	assert.Equal(t, model.ShiftCancelled, NextStatus(model.ShiftCancelled, 3, 3))
}

func TestReserveIncrementsAndFlipsStatus(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()
	seedShift(t, mem, "shift-1", 1, 2, model.ShiftOpen)

	require.NoError(t, store.Reserve(ctx, "shift-1", ""))

	shift, err := mem.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 2, shift.CurrentParticipants)
	assert.Equal(t, model.ShiftFull, shift.Status)
}

func TestReserveRejectsWhenFull(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()
	seedShift(t, mem, "shift-1", 2, 2, model.ShiftFull)

	err := store.Reserve(ctx, "shift-1", "")
	assert.ErrorIs(t, err, ErrShiftFull)

	shift, err := mem.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 2, shift.CurrentParticipants)
}

func TestReserveRejectsClosedAndCancelled(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()
	seedShift(t, mem, "closed", 0, 2, model.ShiftClosed)
	seedShift(t, mem, "cancelled", 0, 2, model.ShiftCancelled)

	assert.ErrorIs(t, store.Reserve(ctx, "closed", ""), ErrShiftNotAllocatable)
	assert.ErrorIs(t, store.Reserve(ctx, "cancelled", ""), ErrShiftNotAllocatable)
}

func TestReleaseDecrementsAndReopens(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()
	seedShift(t, mem, "shift-1", 2, 2, model.ShiftFull)

	require.NoError(t, store.Release(ctx, "shift-1", ""))

	shift, err := mem.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 1, shift.CurrentParticipants)
	assert.Equal(t, model.ShiftOpen, shift.Status)
}

func TestReleaseBelowZeroIsRejected(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()
	seedShift(t, mem, "shift-1", 0, 2, model.ShiftOpen)

	err := store.Release(ctx, "shift-1", "")
	assert.ErrorIs(t, err, ErrInvariantViolation)

	shift, err := mem.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 0, shift.CurrentParticipants)
}

// Two concurrent reserves on a shift with one seat left must admit exactly
// one caller.
func TestConcurrentReserveAdmitsExactlyOne(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()
	seedShift(t, mem, "shift-1", 1, 2, model.ShiftOpen)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Reserve(ctx, "shift-1", "")
		}(i)
	}
	wg.Wait()

	admitted := 0
	rejected := 0
	for _, err := range results {
		if err == nil {
			admitted++
		} else if errors.Is(err, ErrShiftFull) {
			rejected++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, rejected)

	shift, err := mem.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 2, shift.CurrentParticipants)
	assert.Equal(t, model.ShiftFull, shift.Status)
}

// Hammer the same shift from many goroutines and check the occupancy bounds
// invariant held throughout.
func TestReserveReleaseStress(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()
	seedShift(t, mem, "shift-1", 0, 5, model.ShiftOpen)

	const workers = 20
	var wg sync.WaitGroup
	admitted := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.Reserve(ctx, "shift-1", ""); err == nil {
				admitted[i] = true
			}
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range admitted {
		if ok {
			count++
		}
	}
	assert.Equal(t, 5, count)

	shift, err := mem.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 5, shift.CurrentParticipants)
	assert.GreaterOrEqual(t, shift.CurrentParticipants, 0)
	assert.LessOrEqual(t, shift.CurrentParticipants, shift.MaxParticipants)
}

func TestSlotReserveAndRelease(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()
	seedShift(t, mem, "shift-1", 0, 4, model.ShiftOpen)
	require.NoError(t, mem.InsertSlot(ctx, &model.Slot{
		ID:              "slot-1",
		ShiftID:         "shift-1",
		MinParticipants: 1,
		MaxParticipants: 1,
		Status:          model.ShiftOpen,
	}))

	require.NoError(t, store.Reserve(ctx, "shift-1", "slot-1"))
	assert.ErrorIs(t, store.Reserve(ctx, "shift-1", "slot-1"), ErrShiftFull)

	require.NoError(t, store.Release(ctx, "shift-1", "slot-1"))
	slot, err := mem.GetSlot(ctx, "slot-1")
	require.NoError(t, err)
	assert.Equal(t, 0, slot.CurrentParticipants)
	assert.Equal(t, model.ShiftOpen, slot.Status)
}
