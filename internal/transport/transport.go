// Package transport defines the inbound/outbound message shapes the
// (out-of-scope) chat transport and the Autonomy Core agree on. It
// breaks the Scheduler Engine <-> Transport cyclic reference: the
// scheduler owns an outbound notification channel it never reads from
// the transport side of, and the transport owns an inbound intent
// channel the core never reaches back into. Concrete wiring lives in
// scheduler.Notification on the outbound side; a real transport
// implementation is out of scope (§1's "the Telegram transport").
package transport

import "time"

// InboundMessage is one user utterance handed to the Intent Classifier.
type InboundMessage struct {
	UserID       string
	Timestamp    time.Time
	Text         string
	LanguageHint string
}

// ReplyMode distinguishes a plain chat reply from a structured admin
// command result.
type ReplyMode string

const (
	ReplyModeChat  ReplyMode = "chat"
	ReplyModeAdmin ReplyMode = "admin"
)

// OutboundMessage is one reply the transport should deliver to a user.
type OutboundMessage struct {
	UserID   string
	Text     string
	ReplyMode ReplyMode
}

// AdminCommand enumerates the closed set of structured admin commands
// the transport can surface, per §6.1's "Transport (chat bot)"
// contract. Each has an equivalent internal/adminapi HTTP route. This
// package defines the values only; it contains no parser or dispatcher
// for them.
type AdminCommand string

const (
	AdminCommandStatus      AdminCommand = "status"
	AdminCommandScheduleList AdminCommand = "schedule_list"
	AdminCommandScheduleRun AdminCommand = "schedule_run"
	AdminCommandScheduleAdd AdminCommand = "schedule_add"
	AdminCommandScheduleSet AdminCommand = "schedule_set"
	AdminCommandScheduleEnable AdminCommand = "schedule_enable"
	AdminCommandScheduleDisable AdminCommand = "schedule_disable"
	AdminCommandMCP         AdminCommand = "mcp"
	AdminCommandMemories    AdminCommand = "memories"
	AdminCommandPersonality AdminCommand = "personality"
	AdminCommandReset       AdminCommand = "reset"
	AdminCommandExample     AdminCommand = "example"
)

// AdminEvent is a parsed structured admin command with its arguments,
// the tagged-variant boundary parse the Design Notes require rather
// than carrying an untyped map past the transport.
type AdminEvent struct {
	Command AdminCommand
	UserID  string
	Args    map[string]string
}
