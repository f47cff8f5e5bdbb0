package orders

import (
	"fmt"
	"strings"
)

// commandTargets maps normalized command tokens onto payment statuses.
// Tokens come from the admin dashboard's quick actions and from the assist
// resolver's vocabulary, so both spellings and short forms appear.
var commandTargets = map[string]Status{
	"pay":             StatusPaid,
	"paid":            StatusPaid,
	"capture":         StatusPaid,
	"confirm payment": StatusPaid,
	"cancel":          StatusCancelled,
	"cancelled":       StatusCancelled,
	"canceled":        StatusCancelled,
	"void":            StatusCancelled,
	"refund":          StatusRefunded,
	"refunded":        StatusRefunded,
}

// ResolveCommand maps a command token onto a target status given the current
// one. Resolution is pure: the legality of current -> target is checked by
// Transition before any commit, exactly as for a directly supplied status.
func ResolveCommand(command string, current Status) (Status, error) {
	token := strings.ToLower(strings.TrimSpace(command))
	if token == "" {
		return "", fmt.Errorf("%w: empty command", ErrUnknownCommand)
	}
	target, ok := commandTargets[token]
	if !ok {
		return "", fmt.Errorf("%w: %q (current status %s)", ErrUnknownCommand, command, current)
	}
	return target, nil
}
