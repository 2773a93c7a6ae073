package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusReserved,
	AppointmentStatusCancelled,
	AppointmentStatusCompleted,
	AppointmentStatusMissed,
}

var allEvents = []AppointmentEvent{
	EventApprove,
	EventCancel,
	EventAttended,
	EventMissed,
}

func TestNextStatusTable(t *testing.T) {
	cases := []struct {
		from  AppointmentStatus
		event AppointmentEvent
		to    AppointmentStatus
	}{
		{AppointmentStatusPending, EventApprove, AppointmentStatusReserved},
		{AppointmentStatusPending, EventCancel, AppointmentStatusCancelled},
		{AppointmentStatusReserved, EventCancel, AppointmentStatusCancelled},
		{AppointmentStatusReserved, EventAttended, AppointmentStatusCompleted},
		{AppointmentStatusReserved, EventMissed, AppointmentStatusMissed},
	}

	for _, tc := range cases {
		to, ok := NextStatus(tc.from, tc.event)
		assert.True(t, ok, "%s + %s", tc.from, tc.event)
		assert.Equal(t, tc.to, to, "%s + %s", tc.from, tc.event)
	}
}

// Терминальные статусы не имеют исходящих переходов
func TestTerminalStatusesAreDeadEnds(t *testing.T) {
	for _, status := range allStatuses {
		if !IsTerminal(status) {
			continue
		}
		for _, event := range allEvents {
			_, ok := NextStatus(status, event)
			assert.False(t, ok, "terminal %s must reject %s", status, event)
		}
	}
}

func TestRejectedTransitions(t *testing.T) {
	rejected := []struct {
		from  AppointmentStatus
		event AppointmentEvent
	}{
		{AppointmentStatusPending, EventAttended},
		{AppointmentStatusPending, EventMissed},
		{AppointmentStatusReserved, EventApprove},
		{AppointmentStatusCancelled, EventCancel},
		{AppointmentStatusCompleted, EventCancel},
		{AppointmentStatusMissed, EventApprove},
	}

	for _, tc := range rejected {
		_, ok := NextStatus(tc.from, tc.event)
		assert.False(t, ok, "%s + %s must be rejected", tc.from, tc.event)
	}
}

// Любая последовательность событий из любого статуса не выводит за пределы
// известного множества статусов
func TestTransitionClosureStaysInKnownStates(t *testing.T) {
	known := make(map[AppointmentStatus]bool, len(allStatuses))
	for _, s := range allStatuses {
		known[s] = true
	}

	for _, from := range allStatuses {
		for _, event := range allEvents {
			if to, ok := NextStatus(from, event); ok {
				assert.True(t, known[to], "%s + %s leads to unknown state %s", from, event, to)
			}
		}
	}
}

func TestEventAllowedFor(t *testing.T) {
	assert.True(t, EventAllowedFor(EventCancel, RoleMentor))
	assert.True(t, EventAllowedFor(EventCancel, RoleStudent))
	assert.True(t, EventAllowedFor(EventApprove, RoleMentor))
	assert.False(t, EventAllowedFor(EventApprove, RoleStudent))
	assert.False(t, EventAllowedFor(EventAttended, RoleStudent))
	assert.False(t, EventAllowedFor(EventMissed, RoleStudent))
}

func TestRequiresSlotPassed(t *testing.T) {
	assert.True(t, RequiresSlotPassed(EventAttended))
	assert.True(t, RequiresSlotPassed(EventMissed))
	assert.False(t, RequiresSlotPassed(EventApprove))
	assert.False(t, RequiresSlotPassed(EventCancel))
}

func TestFeedbackAllowed(t *testing.T) {
	assert.True(t, FeedbackAllowed(AppointmentStatusCompleted))
	assert.True(t, FeedbackAllowed(AppointmentStatusMissed))
	assert.False(t, FeedbackAllowed(AppointmentStatusPending))
	assert.False(t, FeedbackAllowed(AppointmentStatusReserved))
	assert.False(t, FeedbackAllowed(AppointmentStatusCancelled))
}
