package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/soyeahso/tellerbot/internal/domain"
	"github.com/soyeahso/tellerbot/internal/fetch"
	"github.com/soyeahso/tellerbot/internal/i18n"
	"github.com/soyeahso/tellerbot/internal/telegram"
)

// Receipt workflow states and triggers. Provider states and triggers are
// shared with the cash workflow.
const (
	stateAwaitingUtility State = "AwaitingUtilityProvider"
	stateAwaitingTrxID   State = "AwaitingTransactionId"

	triggerUtilitySent          Trigger = "UtilityProviderSent"
	triggerSingleUtilityRefused Trigger = "SingleUtilityProviderRefused"
	triggerTrxIDSent            Trigger = "TransactionIdSent"
	triggerRetryNewTrxID        Trigger = "RetryNewTrxId"
	triggerRetryNewUtility      Trigger = "RetryNewUtilityProvider"
)

// receiptWorkflow walks a principal through provider, utility company and
// transaction id, then fetches and posts the receipt document.
type receiptWorkflow struct {
	conv    *conversation
	machine *Machine
	data    *domain.ReceiptContext
}

func newReceiptWorkflow(conv *conversation) *receiptWorkflow {
	w := &receiptWorkflow{conv: conv, data: &domain.ReceiptContext{}}
	w.machine = NewMachine(conv).
		Permit(StateIdle, triggerAskProviderList, stateAwaitingProvider).
		Permit(stateAwaitingProvider, triggerProviderSent, stateAwaitingUtility).
		Permit(stateAwaitingProvider, triggerSingleProviderRefused, stateDone).
		Permit(stateAwaitingUtility, triggerUtilitySent, stateAwaitingTrxID).
		Permit(stateAwaitingUtility, triggerSingleUtilityRefused, stateDone).
		Permit(stateAwaitingTrxID, triggerTrxIDSent, stateDone).
		Permit(stateDone, triggerRetryNewTrxID, stateAwaitingTrxID).
		Permit(stateDone, triggerRetryNewUtility, stateAwaitingUtility).
		Permit(stateDone, triggerRetryNewProvider, stateAwaitingProvider).
		OnEntry(stateAwaitingProvider, w.askProvider).
		OnEntry(stateAwaitingUtility, w.askUtility).
		OnEntry(stateAwaitingTrxID, w.askTrxID).
		OnEntry(stateDone, w.askRetry).
		OnExit(stateAwaitingTrxID, w.fetchAndPost)
	return w
}

func (w *receiptWorkflow) Process(ctx context.Context, data string) error {
	c := w.conv
	proceed, err := c.begin(ctx)
	if err != nil || !proceed {
		return err
	}
	if raw := c.principal.Session.ContextData; raw != nil {
		if err := json.Unmarshal(raw, w.data); err != nil {
			return fmt.Errorf("engine: receipt context: %w", err)
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
	case stateAwaitingUtility:
		return w.handleUtilityChoice(ctx, data)
	case stateAwaitingTrxID:
		return w.handleTrxID(ctx, data)
	case stateDone:
		return w.handleRetryChoice(ctx, data)
	}
	return nil
}

func (w *receiptWorkflow) handleProviderChoice(ctx context.Context, data string) error {
	c := w.conv
	if c.upd.IsPlainMessage() {
		c.deleteTrigger(ctx)
		return nil
	}

	var cat *domain.Catalog
	if len(c.svc.Catalogs) == 1 {
		switch data {
		case "false":
			return w.machine.Fire(ctx, triggerSingleProviderRefused)
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

	w.data = &domain.ReceiptContext{ProviderID: cat.ProviderID}
	if err := c.setContextData(ctx, w.data); err != nil {
		return err
	}
	return w.machine.Fire(ctx, triggerProviderSent)
}

func (w *receiptWorkflow) handleUtilityChoice(ctx context.Context, data string) error {
	c := w.conv
	if c.upd.IsPlainMessage() {
		c.deleteTrigger(ctx)
		return nil
	}
	cat := c.svc.CatalogByProvider(w.data.ProviderID)
	if cat == nil {
		return fmt.Errorf("engine: lost catalog for provider %d", w.data.ProviderID)
	}
	utilities := cat.Provider.Utilities
	if len(utilities) == 0 {
		return fmt.Errorf("engine: provider %s has no utility companies", cat.Provider.Name)
	}

	var chosen string
	if w.data.UtilityCount == 1 {
		switch data {
		case "false":
			return w.machine.Fire(ctx, triggerSingleUtilityRefused)
		case "true":
			chosen = utilities[0].ID
		default:
			return nil
		}
	} else {
		for _, u := range utilities {
			if u.ID == data {
				chosen = u.ID
				break
			}
		}
		if chosen == "" {
			return nil
		}
	}

	w.data.UtilityProviderID = chosen
	if err := c.setContextData(ctx, w.data); err != nil {
		return err
	}
	return w.machine.Fire(ctx, triggerUtilitySent)
}

func (w *receiptWorkflow) handleTrxID(ctx context.Context, data string) error {
	c := w.conv
	_, cfg, err := w.providerConfig()
	if err != nil {
		return err
	}
	if len(data) != cfg.TrxIDLength {
		c.deleteTrigger(ctx)
		warn := c.loc.T(i18n.WarnInvalidTrxID, emojiWarning, cfg.TrxIDLength)
		return c.sendOrEdit(ctx, warn, nil)
	}

	w.data.TrxID = data
	if err := c.setContextData(ctx, w.data); err != nil {
		return err
	}
	c.deleteTrigger(ctx)
	return w.machine.Fire(ctx, triggerTrxIDSent)
}

func (w *receiptWorkflow) handleRetryChoice(ctx context.Context, data string) error {
	c := w.conv
	if c.upd.IsPlainMessage() {
		c.deleteTrigger(ctx)
		return nil
	}
	switch data {
	case string(triggerRetryNewTrxID):
		return w.machine.Fire(ctx, triggerRetryNewTrxID)
	case string(triggerRetryNewUtility):
		return w.machine.Fire(ctx, triggerRetryNewUtility)
	case string(triggerRetryNewProvider):
		return w.machine.Fire(ctx, triggerRetryNewProvider)
	}
	c.log.Warn().Str("data", data).Msg("unknown retry choice, re-asking utility")
	return w.machine.Fire(ctx, triggerRetryNewUtility)
}

func (w *receiptWorkflow) askProvider(ctx context.Context) error {
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

// askUtility presents the provider's utility companies. A provider offering
// receipts without utility companies is a catalog defect and aborts.
func (w *receiptWorkflow) askUtility(ctx context.Context) error {
	c := w.conv
	cat := c.svc.CatalogByProvider(w.data.ProviderID)
	if cat == nil {
		return fmt.Errorf("engine: lost catalog for provider %d", w.data.ProviderID)
	}
	utilities := cat.Provider.Utilities
	if len(utilities) == 0 {
		return fmt.Errorf("engine: provider %s has no utility companies", cat.Provider.Name)
	}

	w.data.UtilityCount = len(utilities)
	if err := c.setContextData(ctx, w.data); err != nil {
		return err
	}

	if len(utilities) == 1 {
		text := c.loc.T(i18n.ServiceSingleProvider, c.desc(), utilities[0].CompanyName)
		return c.sendOrEdit(ctx, text, yesNoKeyboard(c.svc.Parent, c.loc))
	}
	text := c.loc.T(i18n.ServiceSelectProvider, c.desc(), len(utilities))
	return c.sendOrEdit(ctx, text, utilitiesKeyboard(utilities, c.svc.Parent, c.loc))
}

func (w *receiptWorkflow) askTrxID(ctx context.Context) error {
	c := w.conv
	cat, _, err := w.providerConfig()
	if err != nil {
		return err
	}
	text := c.loc.T(i18n.ReceiptEnterTrxID, c.desc(), cat.Provider.Name)
	return c.sendOrEdit(ctx, text, keyboardOf(nil, 1, backRow(c.svc.Parent, c.loc)))
}

func (w *receiptWorkflow) askRetry(ctx context.Context) error {
	return w.conv.sendOrEdit(ctx, w.conv.loc.T(i18n.Retry), w.retryChoices())
}

// fetchAndPost runs when transaction id entry completes: it announces the
// wait, fetches the document link and posts it. A fetch failure is surfaced
// to the principal with retry options and re-raised, so the machine stays
// in transaction id entry.
func (w *receiptWorkflow) fetchAndPost(ctx context.Context) error {
	c := w.conv
	cat, cfg, err := w.providerConfig()
	if err != nil {
		return err
	}

	if err := c.sendOrEdit(ctx, c.loc.T(i18n.ReceiptPleaseWait, emojiHourglass), nil); err != nil {
		return err
	}

	ep := fetch.Endpoint{
		URLTemplate: cfg.ReceiptURL,
		Host:        cfg.ReceiptHost,
		Referer:     cfg.ReceiptReferer,
	}
	link, err := c.eng.receipts.FetchLink(ctx, ep, w.data.UtilityProviderID, w.data.TrxID)
	if err != nil {
		if sendErr := c.sendOrEdit(ctx, c.loc.T(i18n.ErrorNotDownloaded, emojiNoEntry), w.retryChoices()); sendErr != nil {
			c.log.Warn().Err(sendErr).Msg("failed to report download error")
		}
		return fmt.Errorf("engine: receipt for provider %s: %w", cat.Provider.Name, err)
	}
	return c.sendDocument(ctx, link, nil)
}

// providerConfig resolves the chosen provider's receipt endpoint settings.
func (w *receiptWorkflow) providerConfig() (*domain.Catalog, *domain.ProviderConfig, error) {
	cat := w.conv.svc.CatalogByProvider(w.data.ProviderID)
	if cat == nil {
		return nil, nil, fmt.Errorf("engine: lost catalog for provider %d", w.data.ProviderID)
	}
	if cat.Provider.Config == nil {
		return nil, nil, fmt.Errorf("engine: provider %s has no receipt config", cat.Provider.Name)
	}
	return cat, cat.Provider.Config, nil
}

// retryChoices builds the after-run keyboard, offering only the retries the
// run has enough recorded context for.
func (w *receiptWorkflow) retryChoices() *telegram.InlineKeyboardMarkup {
	c := w.conv
	var choices []telegram.InlineKeyboardButton
	if w.data.UtilityProviderID != "" {
		choices = append(choices, telegram.InlineKeyboardButton{
			Text:         c.loc.T(i18n.RetryTrxID, emojiRetry),
			CallbackData: string(triggerRetryNewTrxID),
		})
	}
	if w.data.ProviderID != 0 {
		choices = append(choices, telegram.InlineKeyboardButton{
			Text:         c.loc.T(i18n.RetryUtility, emojiRetry),
			CallbackData: string(triggerRetryNewUtility),
		})
	}
	choices = append(choices, telegram.InlineKeyboardButton{
		Text:         c.loc.T(i18n.RetryProvider, emojiRetry),
		CallbackData: string(triggerRetryNewProvider),
	})
	return retryKeyboard(c.svc.Parent, c.loc, choices...)
}
