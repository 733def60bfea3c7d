// Package vault implements the custodial savings vault service.
package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stablevault/vault_service/internal/logging"
)

// Event is an observable vault event for external consumers/indexers.
type Event interface {
	EventName() string
}

// DepositEvent is emitted after a completed deposit.
type DepositEvent struct {
	User         common.Address
	Gross        *big.Int
	Net          *big.Int
	Fee          *big.Int
	XPEarned     uint64
	NewXPBalance uint64
}

func (DepositEvent) EventName() string { return "Deposit" }

// WithdrawalEvent is emitted after a completed withdrawal. Gross is the
// amount actually released by the venue.
type WithdrawalEvent struct {
	User         common.Address
	Gross        *big.Int
	Fee          *big.Int
	Net          *big.Int
	XPEarned     uint64
	NewXPBalance uint64
	Recipient    common.Address
}

func (WithdrawalEvent) EventName() string { return "Withdrawal" }

// ClaimedEvent is emitted after a successful XP claim.
type ClaimedEvent struct {
	User    common.Address
	Claimer common.Address
	Amount  uint64
}

func (ClaimedEvent) EventName() string { return "Claimed" }

// ClaimStatusUpdatedEvent is emitted when the global claim gate toggles.
type ClaimStatusUpdatedEvent struct {
	Enabled bool
}

func (ClaimStatusUpdatedEvent) EventName() string { return "ClaimStatusUpdated" }

// ClaimerAuthorizationUpdatedEvent is emitted when the claimer set changes.
type ClaimerAuthorizationUpdatedEvent struct {
	Claimer    common.Address
	Authorized bool
}

func (ClaimerAuthorizationUpdatedEvent) EventName() string { return "ClaimerAuthorizationUpdated" }

// PausedEvent is emitted when the circuit breaker trips.
type PausedEvent struct {
	Actor common.Address
}

func (PausedEvent) EventName() string { return "Paused" }

// UnpausedEvent is emitted when the circuit breaker resets.
type UnpausedEvent struct {
	Actor common.Address
}

func (UnpausedEvent) EventName() string { return "Unpaused" }

// FeesWithdrawnEvent is emitted after a privileged fee sweep.
type FeesWithdrawnEvent struct {
	Recipient common.Address
	Amount    *big.Int
}

func (FeesWithdrawnEvent) EventName() string { return "FeesWithdrawn" }

// =============================================================================
// Sinks
// =============================================================================

// EventSink consumes vault events.
type EventSink interface {
	Emit(ev Event)
}

// MultiSink fans events out to several sinks.
type MultiSink []EventSink

// Emit forwards the event to every sink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// LogSink writes events to the service log.
type LogSink struct {
	log logging.Logger
}

// NewLogSink creates a sink writing to log.
func NewLogSink(log logging.Logger) *LogSink {
	return &LogSink{log: log}
}

// Emit logs the event with its fields as key-value pairs.
func (s *LogSink) Emit(ev Event) {
	switch e := ev.(type) {
	case DepositEvent:
		s.log.Info("event Deposit",
			"user", e.User.Hex(),
			"gross", e.Gross.String(),
			"net", e.Net.String(),
			"fee", e.Fee.String(),
			"xp_earned", e.XPEarned,
			"new_xp_balance", e.NewXPBalance,
		)
	case WithdrawalEvent:
		s.log.Info("event Withdrawal",
			"user", e.User.Hex(),
			"gross", e.Gross.String(),
			"fee", e.Fee.String(),
			"net", e.Net.String(),
			"xp_earned", e.XPEarned,
			"new_xp_balance", e.NewXPBalance,
			"recipient", e.Recipient.Hex(),
		)
	case ClaimedEvent:
		s.log.Info("event Claimed",
			"user", e.User.Hex(),
			"claimer", e.Claimer.Hex(),
			"amount", e.Amount,
		)
	case ClaimStatusUpdatedEvent:
		s.log.Info("event ClaimStatusUpdated", "enabled", e.Enabled)
	case ClaimerAuthorizationUpdatedEvent:
		s.log.Info("event ClaimerAuthorizationUpdated",
			"claimer", e.Claimer.Hex(),
			"authorized", e.Authorized,
		)
	case PausedEvent:
		s.log.Warn("event Paused", "actor", e.Actor.Hex())
	case UnpausedEvent:
		s.log.Info("event Unpaused", "actor", e.Actor.Hex())
	case FeesWithdrawnEvent:
		s.log.Info("event FeesWithdrawn",
			"recipient", e.Recipient.Hex(),
			"amount", e.Amount.String(),
		)
	default:
		s.log.Info("event", "name", ev.EventName())
	}
}

// CaptureSink buffers events. Used in tests and by indexer plumbing.
type CaptureSink struct {
	Events []Event
}

// Emit appends the event.
func (c *CaptureSink) Emit(ev Event) {
	c.Events = append(c.Events, ev)
}
