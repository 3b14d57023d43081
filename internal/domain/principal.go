// Package domain holds the core data model shared across the bot:
// principals, their sessions, and the service catalog.
package domain

import "time"

// Principal is a chat user conducting a conversation with the bot.
// The admin flag is computed once from the configured allow-list when the
// principal is first created and never re-derived afterwards.
type Principal struct {
	ID           int64
	TelegramID   int64
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
	IsAdmin      bool
	IsBot        bool
	CreatedAt    time.Time

	Session *Session
}

// Session is the durable per-principal conversation state. Exactly one
// exists per principal, created lazily on first contact.
type Session struct {
	ID          int64
	PrincipalID int64
	CreatedAt   time.Time

	// Context is the command of the workflow currently owning the session,
	// or empty when no workflow has claimed it.
	Context string

	// State is the name of the current state-machine state. Empty means Idle.
	State string

	// ContextData is the opaque, workflow-defined payload. nil when absent.
	ContextData []byte
}

// Claim resets the session to a fresh run of the given workflow command.
// Context, State and ContextData always change together; a session is never
// partially reset.
func (s *Session) Claim(command string) {
	s.Context = command
	s.State = ""
	s.ContextData = nil
}
