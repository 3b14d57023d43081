package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/soyeahso/tellerbot/internal/domain"
	"github.com/soyeahso/tellerbot/internal/fee"
	"github.com/soyeahso/tellerbot/internal/i18n"
	"github.com/soyeahso/tellerbot/internal/telegram"
)

// Cash movement workflow states and triggers.
const (
	stateAwaitingProvider State = "AwaitingProvider"
	stateAwaitingAmount   State = "AwaitingAmount"
	stateDone             State = "Done"

	triggerAskProviderList       Trigger = "AskProviderList"
	triggerProviderSent          Trigger = "ProviderSent"
	triggerSingleProviderRefused Trigger = "SingleProviderRefused"
	triggerAmountSent            Trigger = "AmountSent"
	triggerRetryNewAmount        Trigger = "RetryNewAmount"
	triggerRetryNewProvider      Trigger = "RetryNewProvider"
)

// cashDirection distinguishes withdrawals from deposits. Both run the same
// machine; only labels differ.
type cashDirection int

const (
	cashOut cashDirection = iota
	cashIn
)

func (d cashDirection) label(loc *i18n.Locale) string {
	if d == cashIn {
		return loc.T(i18n.CashInLabel)
	}
	return loc.T(i18n.CashOutLabel)
}

// cashWorkflow walks a principal through provider choice and amount entry,
// then quotes the movement fee.
type cashWorkflow struct {
	conv      *conversation
	direction cashDirection
	machine   *Machine
	data      *domain.CashContext
}

func newCashWorkflow(conv *conversation, direction cashDirection) *cashWorkflow {
	w := &cashWorkflow{conv: conv, direction: direction, data: &domain.CashContext{}}
	w.machine = NewMachine(conv).
		Permit(StateIdle, triggerAskProviderList, stateAwaitingProvider).
		Permit(stateAwaitingProvider, triggerProviderSent, stateAwaitingAmount).
		Permit(stateAwaitingProvider, triggerSingleProviderRefused, stateDone).
		Permit(stateAwaitingAmount, triggerAmountSent, stateDone).
		Permit(stateDone, triggerRetryNewAmount, stateAwaitingAmount).
		Permit(stateDone, triggerRetryNewProvider, stateAwaitingProvider).
		OnEntry(stateAwaitingProvider, w.askProvider).
		OnEntry(stateAwaitingAmount, w.askAmount).
		OnExit(stateAwaitingAmount, w.quoteFee)
	return w
}

func (w *cashWorkflow) Process(ctx context.Context, data string) error {
	c := w.conv
	proceed, err := c.begin(ctx)
	if err != nil || !proceed {
		return err
	}
	if raw := c.principal.Session.ContextData; raw != nil {
		if err := json.Unmarshal(raw, w.data); err != nil {
			return fmt.Errorf("engine: cash context: %w", err)
		}
	}

	state := w.machine.State()
	if state != StateIdle && c.svc.HasSibling(data) {
		return nil
	}

	switch state {
	case StateIdle:
		return w.machine.Fire(ctx, triggerAskProviderList)
	case stateAwaitingProvider:
		return w.handleProviderChoice(ctx, data)
	case stateAwaitingAmount:
		return w.handleAmount(ctx, data)
	case stateDone:
		return w.handleRetryChoice(ctx, data)
	}
	return nil
}

func (w *cashWorkflow) handleProviderChoice(ctx context.Context, data string) error {
	c := w.conv
	if c.upd.IsPlainMessage() {
		c.deleteTrigger(ctx)
		return nil
	}

	var cat *domain.Catalog
	if len(c.svc.Catalogs) == 1 {
		switch data {
		case "false":
			if err := w.machine.Fire(ctx, triggerSingleProviderRefused); err != nil {
				return err
			}
			return c.sendOrEdit(ctx, c.loc.T(i18n.Retry), w.retryChoices())
		case "true":
			cat = c.svc.Catalogs[0]
		default:
			return nil
		}
	} else {
		providerID, err := strconv.ParseInt(data, 10, 64)
		if err != nil {
			return nil
		}
		cat = c.svc.CatalogByProvider(providerID)
	}
	if cat == nil {
		c.log.Error().Str("data", data).Str("service", c.svc.Command).Msg("no catalog for provider choice")
		return nil
	}
	if cat.Pricing == nil {
		return fmt.Errorf("engine: provider %d offers %s without pricing", cat.ProviderID, c.svc.Command)
	}

	sched, err := fee.ParseLines(cat.Pricing.Lines)
	if err != nil {
		return err
	}
	w.data = &domain.CashContext{
		ProviderID: cat.ProviderID,
		MinAmount:  sched.Min(),
		MaxAmount:  sched.Max(),
	}
	if err := c.setContextData(ctx, w.data); err != nil {
		return err
	}
	return w.machine.Fire(ctx, triggerProviderSent)
}

func (w *cashWorkflow) handleAmount(ctx context.Context, data string) error {
	c := w.conv
	amount, err := strconv.ParseFloat(data, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		c.deleteTrigger(ctx)
		return c.sendOrEdit(ctx, c.loc.T(i18n.WarnInvalidAmount, emojiWarning), nil)
	}
	if amount < w.data.MinAmount || amount > w.data.MaxAmount {
		c.deleteTrigger(ctx)
		warn := c.loc.T(i18n.WarnAmountRange, emojiWarning, amount, w.data.MinAmount, w.data.MaxAmount)
		return c.sendOrEdit(ctx, warn, nil)
	}

	w.data.Amount = &amount
	if err := c.setContextData(ctx, w.data); err != nil {
		return err
	}
	c.deleteTrigger(ctx)
	return w.machine.Fire(ctx, triggerAmountSent)
}

func (w *cashWorkflow) handleRetryChoice(ctx context.Context, data string) error {
	c := w.conv
	if c.upd.IsPlainMessage() {
		c.deleteTrigger(ctx)
		return nil
	}
	if data == string(triggerRetryNewAmount) && w.data.Amount != nil {
		return w.machine.Fire(ctx, triggerRetryNewAmount)
	}
	return w.machine.Fire(ctx, triggerRetryNewProvider)
}

func (w *cashWorkflow) askProvider(ctx context.Context) error {
	c := w.conv
	switch n := len(c.svc.Catalogs); n {
	case 0:
		return fmt.Errorf("engine: no providers offer %s", c.svc.Command)
	case 1:
		text := c.loc.T(i18n.ServiceSingleProvider, c.desc(), c.svc.Catalogs[0].Provider.Name)
		return c.sendOrEdit(ctx, text, yesNoKeyboard(c.svc.Parent, c.loc))
	default:
		text := c.loc.T(i18n.ServiceSelectProvider, c.desc(), n)
		return c.sendOrEdit(ctx, text, providersKeyboard(c.svc, c.loc))
	}
}

func (w *cashWorkflow) askAmount(ctx context.Context) error {
	c := w.conv
	text := c.loc.T(i18n.CashEnterAmount, c.desc(), w.direction.label(c.loc))
	return c.sendOrEdit(ctx, text, keyboardOf(nil, 1, backRow(c.svc.Parent, c.loc)))
}

// quoteFee runs when amount entry completes. A missing tier is a schedule
// configuration defect and aborts the transition.
func (w *cashWorkflow) quoteFee(ctx context.Context) error {
	c := w.conv
	if w.data.Amount == nil {
		return errors.New("engine: quoting fee without amount")
	}
	cat := c.svc.CatalogByProvider(w.data.ProviderID)
	if cat == nil || cat.Pricing == nil {
		return fmt.Errorf("engine: lost pricing for provider %d", w.data.ProviderID)
	}
	sched, err := fee.ParseLines(cat.Pricing.Lines)
	if err != nil {
		return err
	}
	owed, err := sched.Evaluate(*w.data.Amount)
	if err != nil {
		return err
	}

	text := c.loc.T(i18n.CashResult, w.direction.label(c.loc), *w.data.Amount, cat.Provider.Name, owed)
	return c.sendOrEdit(ctx, text, w.retryChoices())
}

// retryChoices builds the after-run keyboard. A new-amount retry is only
// offered once an amount has been recorded.
func (w *cashWorkflow) retryChoices() *telegram.InlineKeyboardMarkup {
	c := w.conv
	var choices []telegram.InlineKeyboardButton
	if w.data.Amount != nil {
		choices = append(choices, telegram.InlineKeyboardButton{
			Text:         c.loc.T(i18n.RetryAmount, emojiRetry),
			CallbackData: string(triggerRetryNewAmount),
		})
	}
	choices = append(choices, telegram.InlineKeyboardButton{
		Text:         c.loc.T(i18n.RetryProvider, emojiRetry),
		CallbackData: string(triggerRetryNewProvider),
	})
	return retryKeyboard(c.svc.Parent, c.loc, choices...)
}
