package orders

import "testing"

func TestResolveCommand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		command string
		current Status
		want    Status
	}{
		{command: "pay", current: StatusPending, want: StatusPaid},
		{command: "paid", current: StatusPending, want: StatusPaid},
		{command: "capture", current: StatusPending, want: StatusPaid},
		{command: "confirm payment", current: StatusPending, want: StatusPaid},
		{command: "cancel", current: StatusPending, want: StatusCancelled},
		{command: "cancelled", current: StatusPending, want: StatusCancelled},
		{command: "canceled", current: StatusPending, want: StatusCancelled},
		{command: "void", current: StatusPending, want: StatusCancelled},
		{command: "refund", current: StatusPaid, want: StatusRefunded},
		{command: "refunded", current: StatusPaid, want: StatusRefunded},
		{command: "  Refund  ", current: StatusPaid, want: StatusRefunded},
		{command: "CANCEL", current: StatusPending, want: StatusCancelled},
	}

	for _, tc := range cases {
		got, err := ResolveCommand(tc.command, tc.current)
		if err != nil {
			t.Fatalf("ResolveCommand(%q, %s): %v", tc.command, tc.current, err)
		}
		if got != tc.want {
			t.Fatalf("ResolveCommand(%q, %s) = %s, want %s", tc.command, tc.current, got, tc.want)
		}
	}
}

func TestResolveCommandUnknown(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "ship", "approve", "refund all", "pay now"} {
		_, err := ResolveCommand(bad, StatusPending)
		if err == nil {
			t.Fatalf("ResolveCommand(%q): expected error", bad)
		}
		if !IsUnknownCommand(err) {
			t.Fatalf("ResolveCommand(%q): error %v is not ErrUnknownCommand", bad, err)
		}
	}
}

// Resolution is pure: a command may map to a status that is illegal from the
// current state. Legality is the transition table's job, not the resolver's.
func TestResolveCommandDoesNotCheckLegality(t *testing.T) {
	t.Parallel()

	got, err := ResolveCommand("refund", StatusPending)
	if err != nil {
		t.Fatalf("ResolveCommand: %v", err)
	}
	if got != StatusRefunded {
		t.Fatalf("ResolveCommand = %s, want refunded", got)
	}
	if _, err := Transition(StatusPending, got); !IsIllegalTransition(err) {
		t.Fatalf("Transition(pending, refunded) = %v, want illegal transition", err)
	}
}
