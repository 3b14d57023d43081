// Package telegram is a minimal Bot API client: long-poll intake plus the
// handful of send/edit/delete calls the conversation engine needs.
package telegram

import "strings"

// User is the sender of an update.
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Chat is the conversation an update belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Message is an inbound or outbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// CallbackQuery is a button press on an inline keyboard.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// Update is one long-poll intake item. Exactly one of the payload fields
// is set.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Sender returns the user that produced the update, or nil for update
// kinds the bot does not handle.
func (u Update) Sender() *User {
	switch {
	case u.Message != nil:
		return u.Message.From
	case u.CallbackQuery != nil:
		return &u.CallbackQuery.From
	}
	return nil
}

// Data returns the trimmed text payload of the update: the message text
// for plain messages, the callback data for button presses.
func (u Update) Data() string {
	switch {
	case u.Message != nil:
		return strings.TrimSpace(u.Message.Text)
	case u.CallbackQuery != nil:
		return strings.TrimSpace(u.CallbackQuery.Data)
	}
	return ""
}

// TriggerMessageID returns the id of the chat message that carried the
// update. For button presses that is the message the keyboard hangs on.
func (u Update) TriggerMessageID() int64 {
	switch {
	case u.Message != nil:
		return u.Message.MessageID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.MessageID
	}
	return 0
}

// IsPlainMessage reports whether the update is a typed chat message
// rather than a button press.
func (u Update) IsPlainMessage() bool { return u.Message != nil }

// InlineKeyboardMarkup is an inline keyboard attached to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton is one button of an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

// Chat actions shown on the principal's device before a send.
const (
	ActionTyping         = "typing"
	ActionUploadDocument = "upload_document"
)
