package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestProcessingStatus_Terminal(t *testing.T) {
	terminal := []ProcessingStatus{StatusDone, StatusError, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("expected %q to be terminal", s)
		}
	}

	for _, s := range []ProcessingStatus{StatusSubmitted, StatusInProgress, ""} {
		if s.Terminal() {
			t.Fatalf("expected %q to be non-terminal", s)
		}
	}
}

func TestMoney_String(t *testing.T) {
	m := Money{Amount: decimal.RequireFromString("21.9"), Currency: "USD"}
	if got := m.String(); got != "21.90 USD" {
		t.Fatalf("expected 21.90 USD, got %q", got)
	}
}
