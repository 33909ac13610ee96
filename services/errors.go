// services/errors.go
package services

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors are expected outcomes. Handlers map them to responses; only
// store failures bubble up as plain errors.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrSessionAlreadyActive = errors.New("a loot session is already active in this channel")
	ErrNoActiveSession      = errors.New("no active loot session in this channel")
	ErrNothingToSplit       = errors.New("no items have been added to the session")
	ErrNoParticipants       = errors.New("the session has no participants")
	ErrForbidden            = errors.New("caller is not allowed to perform this action")
	ErrInvalidEventTime     = errors.New("event time must be in the future")
)

// ClaimCooldownError is returned when a timed claim (daily/work) is attempted
// before its cooldown expired. No state is mutated.
type ClaimCooldownError struct {
	Claim     string
	Remaining time.Duration
}

func (e *ClaimCooldownError) Error() string {
	return fmt.Sprintf("%s claim on cooldown for another %s", e.Claim, e.Remaining.Round(time.Second))
}
