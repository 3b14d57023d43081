package engine

import (
	"strconv"

	"github.com/soyeahso/tellerbot/internal/domain"
	"github.com/soyeahso/tellerbot/internal/i18n"
	"github.com/soyeahso/tellerbot/internal/telegram"
)

// Emoji decorations used across messages and keyboards.
const (
	emojiBank      = "🏦"
	emojiCashOut   = "💸"
	emojiCashIn    = "💵"
	emojiReceipt   = "🧾"
	emojiRobot     = "🤖"
	emojiHome      = "🏠"
	emojiRetry     = "🔁"
	emojiWarning   = "⚠️"
	emojiHourglass = "⏳"
	emojiNoEntry   = "⛔"
	emojiYes       = "✅"
	emojiNo        = "❌"
)

// serviceEmoji returns the decoration for a service command. Unknown
// commands get the generic bank mark.
func serviceEmoji(command string) string {
	switch command {
	case "/start":
		return emojiHome
	case "/cashout":
		return emojiCashOut
	case "/cashin":
		return emojiCashIn
	case "/receipt":
		return emojiReceipt
	case "/about":
		return emojiRobot
	}
	return emojiBank
}

// decorate prefixes the localized service description with its emoji.
func decorate(svc *domain.Service, english bool) string {
	return serviceEmoji(svc.Command) + " " + svc.Desc(english)
}

// keyboardOf lays buttons out perRow per row and appends the extra rows,
// typically a trailing back-to-parent row.
func keyboardOf(buttons []telegram.InlineKeyboardButton, perRow int, extra ...[]telegram.InlineKeyboardButton) *telegram.InlineKeyboardMarkup {
	if perRow <= 0 {
		perRow = 1
	}
	kb := &telegram.InlineKeyboardMarkup{}
	for len(buttons) > 0 {
		n := perRow
		if n > len(buttons) {
			n = len(buttons)
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, buttons[:n])
		buttons = buttons[n:]
	}
	for _, row := range extra {
		if len(row) > 0 {
			kb.InlineKeyboard = append(kb.InlineKeyboard, row)
		}
	}
	return kb
}

// backRow builds the back-to-parent row, or nil for the root service.
func backRow(parent *domain.Service, loc *i18n.Locale) []telegram.InlineKeyboardButton {
	if parent == nil {
		return nil
	}
	if parent.ParentID == 0 {
		return []telegram.InlineKeyboardButton{
			{Text: loc.T(i18n.Home, emojiHome), CallbackData: parent.Command},
		}
	}
	return []telegram.InlineKeyboardButton{
		{Text: loc.T(i18n.Back, decorate(parent, loc.English())), CallbackData: parent.Command},
	}
}

// servicesKeyboard lists the children of a service, one per row.
func servicesKeyboard(svc *domain.Service, loc *i18n.Locale) *telegram.InlineKeyboardMarkup {
	buttons := make([]telegram.InlineKeyboardButton, 0, len(svc.Children))
	for _, child := range svc.Children {
		buttons = append(buttons, telegram.InlineKeyboardButton{
			Text:         decorate(child, loc.English()),
			CallbackData: child.Command,
		})
	}
	return keyboardOf(buttons, 1, backRow(svc.Parent, loc))
}

// providersKeyboard lists a service's provider offers. Button data carries
// the provider id.
func providersKeyboard(svc *domain.Service, loc *i18n.Locale) *telegram.InlineKeyboardMarkup {
	buttons := make([]telegram.InlineKeyboardButton, 0, len(svc.Catalogs))
	for _, cat := range svc.Catalogs {
		buttons = append(buttons, telegram.InlineKeyboardButton{
			Text:         cat.Provider.Name,
			CallbackData: strconv.FormatInt(cat.ProviderID, 10),
		})
	}
	return keyboardOf(buttons, 2, backRow(svc.Parent, loc))
}

// utilitiesKeyboard lists a provider's utility sub-providers. Button data
// carries the utility id.
func utilitiesKeyboard(utilities []domain.Utility, parent *domain.Service, loc *i18n.Locale) *telegram.InlineKeyboardMarkup {
	buttons := make([]telegram.InlineKeyboardButton, 0, len(utilities))
	for _, u := range utilities {
		buttons = append(buttons, telegram.InlineKeyboardButton{
			Text:         u.CompanyName,
			CallbackData: u.ID,
		})
	}
	return keyboardOf(buttons, 2, backRow(parent, loc))
}

// yesNoKeyboard confirms a single offer. Button data is "true"/"false".
func yesNoKeyboard(parent *domain.Service, loc *i18n.Locale) *telegram.InlineKeyboardMarkup {
	row := []telegram.InlineKeyboardButton{
		{Text: emojiYes + " " + loc.T(i18n.Yes), CallbackData: "true"},
		{Text: emojiNo + " " + loc.T(i18n.No), CallbackData: "false"},
	}
	kb := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{row}}
	if back := backRow(parent, loc); back != nil {
		kb.InlineKeyboard = append(kb.InlineKeyboard, back)
	}
	return kb
}

// retryKeyboard lays out follow-up choices after a finished run, one per
// row, closing with the home row.
func retryKeyboard(parent *domain.Service, loc *i18n.Locale, choices ...telegram.InlineKeyboardButton) *telegram.InlineKeyboardMarkup {
	return keyboardOf(choices, 1, backRow(parent, loc))
}
