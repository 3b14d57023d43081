package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/soyeahso/tellerbot/internal/domain"
	"github.com/soyeahso/tellerbot/internal/i18n"
	"github.com/soyeahso/tellerbot/internal/telegram"
)

// workflow processes one turn of a conversation.
type workflow interface {
	Process(ctx context.Context, data string) error
}

// HandleUpdate is the poller's entry point: one invocation per inbound
// update. It is the single place where turn failures are logged and
// swallowed; nothing propagates back to the intake loop.
func (e *Engine) HandleUpdate(ctx context.Context, upd telegram.Update) {
	sender := upd.Sender()
	if sender == nil || sender.IsBot {
		return
	}

	turn := uuid.NewString()
	log := e.log.Sub("turn")
	if err := e.processTurn(ctx, upd, sender, turn); err != nil {
		log.Error().Err(err).
			Str("turn", turn).
			Int64("sender", sender.ID).
			Msg("turn failed")
	}
}

func (e *Engine) processTurn(ctx context.Context, upd telegram.Update, sender *telegram.User, turn string) error {
	principal, err := e.resolvePrincipal(ctx, sender)
	if err != nil {
		return err
	}

	data := upd.Data()
	svc, err := e.resolveService(ctx, data, principal.Session.Context)
	if err != nil {
		return err
	}

	conv := &conversation{
		eng:       e,
		upd:       upd,
		sender:    sender,
		principal: principal,
		svc:       svc,
		loc:       i18n.ForLanguage(principal.LanguageCode),
		log:       e.log.Sub("conversation"),
	}

	wf, err := e.workflowFor(conv)
	if err != nil {
		return err
	}

	e.log.Debug().
		Str("turn", turn).
		Int64("principal", principal.ID).
		Str("service", svc.Command).
		Str("state", principal.Session.State).
		Msg("dispatching")
	return wf.Process(ctx, data)
}

// resolvePrincipal returns the principal for the sender, consulting the
// cache first. Racing updates from the same sender resolve through a
// single store round trip.
func (e *Engine) resolvePrincipal(ctx context.Context, sender *telegram.User) (*domain.Principal, error) {
	key := fmt.Sprintf("%d", sender.ID)
	return e.principals.GetOrCreate(ctx, key, func(ctx context.Context) (*domain.Principal, error) {
		return e.store.FindOrCreatePrincipal(ctx, &domain.Principal{
			TelegramID:   sender.ID,
			FirstName:    sender.FirstName,
			LastName:     sender.LastName,
			Username:     sender.Username,
			LanguageCode: sender.LanguageCode,
			IsAdmin:      e.admins[sender.ID],
			IsBot:        sender.IsBot,
		})
	})
}

// resolveService picks the service owning this turn: the service named by
// the input, else the one holding the session, else the root menu.
func (e *Engine) resolveService(ctx context.Context, data, sessionContext string) (*domain.Service, error) {
	if data != "" {
		svc, err := e.store.ServiceByCommand(ctx, data)
		if err != nil {
			return nil, err
		}
		if svc != nil {
			return svc, nil
		}
	}
	if sessionContext != "" {
		svc, err := e.store.ServiceByCommand(ctx, sessionContext)
		if err != nil {
			return nil, err
		}
		if svc != nil {
			return svc, nil
		}
	}
	return e.store.RootService(ctx)
}

// workflowFor maps a service command to its workflow implementation.
func (e *Engine) workflowFor(conv *conversation) (workflow, error) {
	switch conv.svc.Command {
	case "/start":
		return newMenuWorkflow(conv), nil
	case "/about":
		return newAboutWorkflow(conv), nil
	case "/cashout":
		return newCashWorkflow(conv, cashOut), nil
	case "/cashin":
		return newCashWorkflow(conv, cashIn), nil
	case "/receipt":
		return newReceiptWorkflow(conv), nil
	}
	return nil, fmt.Errorf("engine: no workflow for service %q", conv.svc.Command)
}
