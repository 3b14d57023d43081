package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdate_PlainMessage(t *testing.T) {
	upd := Update{Message: &Message{
		MessageID: 10,
		From:      &User{ID: 1},
		Text:      "  1000  ",
	}}

	assert.True(t, upd.IsPlainMessage())
	assert.Equal(t, "1000", upd.Data())
	assert.Equal(t, int64(10), upd.TriggerMessageID())
	assert.Equal(t, int64(1), upd.Sender().ID)
}

func TestUpdate_CallbackQuery(t *testing.T) {
	upd := Update{CallbackQuery: &CallbackQuery{
		From:    User{ID: 2},
		Message: &Message{MessageID: 33},
		Data:    "RetryNewAmount",
	}}

	assert.False(t, upd.IsPlainMessage())
	assert.Equal(t, "RetryNewAmount", upd.Data())
	assert.Equal(t, int64(33), upd.TriggerMessageID())
	assert.Equal(t, int64(2), upd.Sender().ID)
}

func TestUpdate_Empty(t *testing.T) {
	var upd Update
	assert.Nil(t, upd.Sender())
	assert.Equal(t, "", upd.Data())
	assert.Equal(t, int64(0), upd.TriggerMessageID())
}
