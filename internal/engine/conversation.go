// Package engine runs the bot's conversations: it resolves the sender to a
// principal, routes each update to the workflow owning the session, and
// drives the workflow's state machine.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/soyeahso/tellerbot/internal/cache"
	"github.com/soyeahso/tellerbot/internal/domain"
	"github.com/soyeahso/tellerbot/internal/fetch"
	"github.com/soyeahso/tellerbot/internal/i18n"
	"github.com/soyeahso/tellerbot/internal/logging"
	"github.com/soyeahso/tellerbot/internal/telegram"
)

// Store is the persistence surface the engine depends on.
type Store interface {
	FindOrCreatePrincipal(ctx context.Context, candidate *domain.Principal) (*domain.Principal, error)
	UpdateSession(ctx context.Context, sess *domain.Session) error
	ServiceByCommand(ctx context.Context, command string) (*domain.Service, error)
	RootService(ctx context.Context) (*domain.Service, error)
}

// ReceiptFetcher retrieves receipt document links from provider endpoints.
type ReceiptFetcher interface {
	FetchLink(ctx context.Context, ep fetch.Endpoint, utilityID, trxID string) (string, error)
}

// Options configures an Engine.
type Options struct {
	// Admins is the allow-list of Telegram ids granted the admin flag when
	// their principal is first created.
	Admins []int64

	// Cache sizing shared by the principal and message-id caches.
	CacheCapacity int
	MessageWeight int
	SlidingTTL    time.Duration
	AbsoluteTTL   time.Duration
}

// Engine holds the long-lived pieces every conversation shares.
type Engine struct {
	api      telegram.API
	store    Store
	receipts ReceiptFetcher
	admins   map[int64]bool
	log      *logging.Logger

	// principals caches resolved principals by Telegram id so a chatty
	// user does not hit the database on every update.
	principals *cache.Cache[*domain.Principal]

	// messages caches the id of the last bot message per principal,
	// driving the send-or-edit decision.
	messages *cache.Cache[int64]
}

// New creates an engine.
func New(api telegram.API, store Store, receipts ReceiptFetcher, opts Options, log *logging.Logger) *Engine {
	admins := make(map[int64]bool, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[id] = true
	}
	return &Engine{
		api:      api,
		store:    store,
		receipts: receipts,
		admins:   admins,
		log:      log.Sub("engine"),
		principals: cache.New[*domain.Principal](cache.Options{
			Capacity:    opts.CacheCapacity,
			Priority:    cache.High,
			SlidingTTL:  opts.SlidingTTL,
			AbsoluteTTL: opts.AbsoluteTTL,
		}),
		messages: cache.New[int64](cache.Options{
			Capacity:    opts.CacheCapacity,
			Weight:      opts.MessageWeight,
			SlidingTTL:  opts.SlidingTTL,
			AbsoluteTTL: opts.AbsoluteTTL,
		}),
	}
}

// conversation is the per-turn working set handed to a workflow.
type conversation struct {
	eng       *Engine
	upd       telegram.Update
	sender    *telegram.User
	principal *domain.Principal
	svc       *domain.Service
	loc       *i18n.Locale
	log       *logging.Logger
}

func (c *conversation) chatID() int64 { return c.sender.ID }

func (c *conversation) cacheKey() string { return strconv.FormatInt(c.sender.ID, 10) }

// desc is the emoji-decorated localized description of the owning service.
func (c *conversation) desc() string { return decorate(c.svc, c.loc.English()) }

// begin gates and claims the session. An admin-only service approached by a
// non-admin aborts the turn silently: logged, nothing sent back. When the
// session belongs to another workflow it is reset for this one.
func (c *conversation) begin(ctx context.Context) (bool, error) {
	if c.svc.AdminOnly && !c.principal.IsAdmin {
		c.log.Info().
			Int64("principal", c.principal.ID).
			Str("service", c.svc.Command).
			Msg("admin-only service refused")
		return false, nil
	}
	if c.principal.Session.Context != c.svc.Command {
		c.principal.Session.Claim(c.svc.Command)
		if err := c.persistSession(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

// persistSession writes the session through to the store and drops the
// cached principal. The next turn loads a fresh copy instead of sharing
// this one across concurrently running turns.
func (c *conversation) persistSession(ctx context.Context) error {
	if err := c.eng.store.UpdateSession(ctx, c.principal.Session); err != nil {
		return err
	}
	c.eng.principals.Remove(c.cacheKey())
	return nil
}

// State implements StateAccessor over the session.
func (c *conversation) State() State { return State(c.principal.Session.State) }

// SetState implements StateAccessor; the new state is durable before the
// machine proceeds.
func (c *conversation) SetState(ctx context.Context, s State) error {
	c.principal.Session.State = string(s)
	return c.persistSession(ctx)
}

// setContextData serializes v into the session payload and persists it.
func (c *conversation) setContextData(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("engine: marshal context data: %w", err)
	}
	c.principal.Session.ContextData = b
	return c.persistSession(ctx)
}

// sendOrEdit delivers text to the principal. When no bot message id is
// cached, or the cached id predates the triggering message, a fresh
// message is sent and its id cached; otherwise the cached message is
// edited in place, which keeps the chat to a single rolling bot message.
func (c *conversation) sendOrEdit(ctx context.Context, text string, kb *telegram.InlineKeyboardMarkup) error {
	key := c.cacheKey()
	last, ok := c.eng.messages.Get(key)
	if !ok || last < c.upd.TriggerMessageID() {
		_ = c.eng.api.SendChatAction(ctx, c.chatID(), telegram.ActionTyping)
		id, err := c.eng.api.SendMessage(ctx, c.chatID(), text, kb)
		if err != nil {
			return err
		}
		return c.eng.messages.Set(key, id)
	}
	return c.eng.api.EditMessageText(ctx, c.chatID(), last, text, kb)
}

// sendDocument posts a document by URL and drops the cached message id so
// the next reply lands below the document instead of editing above it.
func (c *conversation) sendDocument(ctx context.Context, fileURL string, kb *telegram.InlineKeyboardMarkup) error {
	_ = c.eng.api.SendChatAction(ctx, c.chatID(), telegram.ActionUploadDocument)
	if _, err := c.eng.api.SendDocument(ctx, c.chatID(), fileURL, kb); err != nil {
		return err
	}
	c.eng.messages.Remove(c.cacheKey())
	return nil
}

// deleteTrigger removes the principal's typed message from the chat.
// Button presses carry no message of their own and are left alone.
// Deletion is best effort.
func (c *conversation) deleteTrigger(ctx context.Context) {
	if !c.upd.IsPlainMessage() {
		return
	}
	if err := c.eng.api.DeleteMessage(ctx, c.chatID(), c.upd.Message.MessageID); err != nil {
		c.log.Warn().Err(err).Int64("message", c.upd.Message.MessageID).Msg("delete failed")
	}
}
