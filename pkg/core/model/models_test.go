package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignmentStatusTransitions(t *testing.T) {
	assert.True(t, AssignmentPending.CanTransitionTo(AssignmentConfirmed))
	assert.True(t, AssignmentPending.CanTransitionTo(AssignmentCancelled))
	assert.True(t, AssignmentConfirmed.CanTransitionTo(AssignmentCompleted))
	assert.True(t, AssignmentConfirmed.CanTransitionTo(AssignmentCancelled))

	// Terminal states allow nothing out
	assert.False(t, AssignmentCancelled.CanTransitionTo(AssignmentPending))
	assert.False(t, AssignmentCancelled.CanTransitionTo(AssignmentConfirmed))
	assert.False(t, AssignmentCompleted.CanTransitionTo(AssignmentCancelled))

	// No skipping pending → completed
	assert.False(t, AssignmentPending.CanTransitionTo(AssignmentCompleted))
}

func TestAssignmentStatusActive(t *testing.T) {
	assert.True(t, AssignmentPending.Active())
	assert.True(t, AssignmentConfirmed.Active())
	assert.False(t, AssignmentCancelled.Active())
	assert.False(t, AssignmentCompleted.Active())
}

func TestWaitingStatusActive(t *testing.T) {
	assert.True(t, WaitingPending.Active())
	assert.True(t, WaitingActivated.Active())
	assert.False(t, WaitingAssigned.Active())
	assert.False(t, WaitingExpired.Active())
	assert.False(t, WaitingCancelled.Active())
}

func TestShiftStatusAllocatable(t *testing.T) {
	assert.True(t, ShiftOpen.Allocatable())
	assert.False(t, ShiftFull.Allocatable())
	assert.False(t, ShiftClosed.Allocatable())
	assert.False(t, ShiftCancelled.Allocatable())
}

func TestReplacementStatusTerminal(t *testing.T) {
	assert.False(t, ReplacementPending.Terminal())
	assert.True(t, ReplacementAccepted.Terminal())
	assert.True(t, ReplacementRejected.Terminal())
	assert.True(t, ReplacementExpired.Terminal())
}
