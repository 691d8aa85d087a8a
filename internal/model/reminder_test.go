package model

import "testing"

func TestReminderStatusTransitions(t *testing.T) {
	tests := []struct {
		from ReminderStatus
		to   ReminderStatus
		want bool
	}{
		{ReminderActive, ReminderPaused, true},
		{ReminderActive, ReminderCompleted, true},
		{ReminderActive, ReminderCancelled, true},
		{ReminderActive, ReminderActive, false},

		{ReminderPaused, ReminderActive, true},
		{ReminderPaused, ReminderCompleted, true},
		{ReminderPaused, ReminderCancelled, true},
		{ReminderPaused, ReminderPaused, false},

		{ReminderCompleted, ReminderActive, false},
		{ReminderCompleted, ReminderPaused, false},
		{ReminderCompleted, ReminderCancelled, false},

		{ReminderCancelled, ReminderActive, false},
		{ReminderCancelled, ReminderCompleted, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestReminderStatusTerminal(t *testing.T) {
	if ReminderActive.Terminal() || ReminderPaused.Terminal() {
		t.Error("active/paused must not be terminal")
	}
	if !ReminderCompleted.Terminal() || !ReminderCancelled.Terminal() {
		t.Error("completed/cancelled must be terminal")
	}
}

func TestDeliveryOutcomeTerminal(t *testing.T) {
	terminal := []DeliveryOutcome{OutcomeAccepted, OutcomeRejected, OutcomeSkippedCap}
	for _, o := range terminal {
		if !o.Terminal() {
			t.Errorf("%s should be terminal", o)
		}
	}
	open := []DeliveryOutcome{OutcomePending, OutcomeUnknown}
	for _, o := range open {
		if o.Terminal() {
			t.Errorf("%s should not be terminal", o)
		}
	}
}
