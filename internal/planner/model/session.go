package model

import (
	"github.com/cloudwego/eino/schema"
)

// DateLayout is the single textual date format used for every date
// field in the external contract. Anything else is a validation
// failure, not a parse crash.
const DateLayout = "2006-01-02"

// Phase identifies where a session currently sits in the planning conversation.
type Phase string

const (
	PhaseSlotFill Phase = "SLOT_FILL"
	PhaseTaskExec Phase = "TASK_EXEC"
	PhaseDone     Phase = "DONE"
)

// SlotStatus tracks the lifecycle of a single trip parameter.
type SlotStatus string

const (
	SlotUnfilled  SlotStatus = "unfilled"
	SlotFilled    SlotStatus = "filled"
	SlotValidated SlotStatus = "validated"
)

// Canonical slot names. Critical slots must be present before task
// decomposition; optional slots refine the plan but never block it.
const (
	SlotOrigin         = "origin"
	SlotDestination    = "destination"
	SlotDepartDate     = "depart_date"
	SlotReturnDate     = "return_date"
	SlotPassengerCount = "passenger_count"
	SlotTransportPref  = "transport_pref"
	SlotHotelTier      = "hotel_tier"
)

var CriticalSlots = []string{SlotOrigin, SlotDestination, SlotDepartDate}

var OptionalSlots = []string{SlotReturnDate, SlotPassengerCount, SlotTransportPref, SlotHotelTier}

// IsCriticalSlot reports whether the named slot must be filled before
// the session may leave SLOT_FILL.
func IsCriticalSlot(name string) bool {
	for _, s := range CriticalSlots {
		if s == name {
			return true
		}
	}
	return false
}

// Slot is one tracked trip parameter.
type Slot struct {
	Value  string     `json:"value"`
	Status SlotStatus `json:"status"`
}

// Session holds everything one identity accumulates across turns. It is
// owned exclusively by the state machine for the duration of a turn and
// persisted through a SessionRepository between turns.
type Session struct {
	Identity string           `json:"identity"`
	History  []*schema.Message `json:"history"`
	Slots    map[string]Slot  `json:"slots"`
	Phase    Phase            `json:"phase"`

	// Per-task attempt counters, keyed by task ID. Retained so a
	// turn interrupted mid-execution never resets its retry budget.
	Attempts map[string]int `json:"attempts,omitempty"`

	// LastDecision records the most recent overall scheduler outcome.
	LastDecision string `json:"last_decision,omitempty"`

	// Non-progress guard: slot values at the last failed validation
	// and how many consecutive validations have failed.
	LastFailedSlots map[string]string `json:"last_failed_slots,omitempty"`
	SlotFailStreak  int               `json:"slot_fail_streak,omitempty"`

	// Degraded marks a session that could not be loaded from the
	// store this turn. Never persisted.
	Degraded bool `json:"-"`
}

// NewSession returns an empty session in the initial phase.
func NewSession(identity string) *Session {
	return &Session{
		Identity: identity,
		History:  []*schema.Message{},
		Slots:    map[string]Slot{},
		Phase:    PhaseSlotFill,
		Attempts: map[string]int{},
	}
}

// AppendUser records a user turn in the conversation history.
func (s *Session) AppendUser(text string) {
	s.History = append(s.History, schema.UserMessage(text))
}

// AppendAssistant records a system response turn.
func (s *Session) AppendAssistant(text string) {
	s.History = append(s.History, schema.AssistantMessage(text, nil))
}

// SlotValues flattens the slot mapping to name → value, skipping
// unfilled slots.
func (s *Session) SlotValues() map[string]string {
	out := make(map[string]string, len(s.Slots))
	for name, slot := range s.Slots {
		if slot.Status == SlotUnfilled || slot.Value == "" {
			continue
		}
		out[name] = slot.Value
	}
	return out
}

// SetSlot records a newly extracted value, downgrading its status to
// filled until the validator passes it again.
func (s *Session) SetSlot(name, value string) {
	if value == "" {
		return
	}
	s.Slots[name] = Slot{Value: value, Status: SlotFilled}
}

// MarkSlotsValidated promotes every filled slot after a passing verdict.
func (s *Session) MarkSlotsValidated() {
	for name, slot := range s.Slots {
		if slot.Status == SlotFilled {
			slot.Status = SlotValidated
			s.Slots[name] = slot
		}
	}
}

// SameSlotValues reports whether the current slot values equal the
// given snapshot. Used to detect a stalled slot-fill loop.
func (s *Session) SameSlotValues(snapshot map[string]string) bool {
	current := s.SlotValues()
	if len(current) != len(snapshot) {
		return false
	}
	for k, v := range current {
		if snapshot[k] != v {
			return false
		}
	}
	return true
}

// TurnResult is the outward-facing outcome of processing one user turn.
type TurnResult struct {
	Response string `json:"response_text"`
	Phase    Phase  `json:"phase"`
	Done     bool   `json:"done"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Snapshot is a read-only view of a session for state inspection.
type Snapshot struct {
	Identity string          `json:"identity"`
	Phase    Phase           `json:"phase"`
	Slots    map[string]Slot `json:"slots"`
	Turns    int             `json:"turns"`
}
