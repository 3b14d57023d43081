package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/tellerbot/internal/domain"
	"github.com/soyeahso/tellerbot/internal/fetch"
	"github.com/soyeahso/tellerbot/internal/i18n"
	"github.com/soyeahso/tellerbot/internal/logging"
	"github.com/soyeahso/tellerbot/internal/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type apiCall struct {
	chatID    int64
	messageID int64
	text      string
	kb        *telegram.InlineKeyboardMarkup
}

type fakeAPI struct {
	mu      sync.Mutex
	seq     *int64
	lastID  int64
	sends   []apiCall
	edits   []apiCall
	docs    []apiCall
	deletes []int64
	actions []string
}

func (f *fakeAPI) SendMessage(_ context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) (int64, error) {
	id := atomic.AddInt64(f.seq, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastID = id
	f.sends = append(f.sends, apiCall{chatID: chatID, messageID: id, text: text, kb: kb})
	return id, nil
}

func (f *fakeAPI) EditMessageText(_ context.Context, chatID, messageID int64, text string, kb *telegram.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, apiCall{chatID: chatID, messageID: messageID, text: text, kb: kb})
	return nil
}

func (f *fakeAPI) DeleteMessage(_ context.Context, _, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, messageID)
	return nil
}

func (f *fakeAPI) SendDocument(_ context.Context, chatID int64, fileURL string, kb *telegram.InlineKeyboardMarkup) (int64, error) {
	id := atomic.AddInt64(f.seq, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastID = id
	f.docs = append(f.docs, apiCall{chatID: chatID, messageID: id, text: fileURL, kb: kb})
	return id, nil
}

func (f *fakeAPI) SendChatAction(_ context.Context, _ int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

// lastMessage returns the text and keyboard of the most recent send or edit.
func (f *fakeAPI) lastMessage(t *testing.T) apiCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var last apiCall
	var found bool
	if n := len(f.sends); n > 0 {
		last, found = f.sends[n-1], true
	}
	if n := len(f.edits); n > 0 {
		if !found || f.edits[n-1].messageID >= last.messageID {
			// Edits reuse old ids; prefer the edit when both exist and the
			// edit came later in the call sequence.
			last = f.edits[n-1]
		}
		found = true
	}
	require.True(t, found, "no message sent or edited")
	return last
}

type fakeStore struct {
	mu         sync.Mutex
	services   map[string]*domain.Service
	root       *domain.Service
	principals map[int64]*domain.Principal
	nextID     int64
	finds      int
	writes     []domain.Session
}

func newFakeStore(services map[string]*domain.Service, root *domain.Service) *fakeStore {
	return &fakeStore{
		services:   services,
		root:       root,
		principals: make(map[int64]*domain.Principal),
	}
}

func (s *fakeStore) FindOrCreatePrincipal(_ context.Context, cand *domain.Principal) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if p, ok := s.principals[cand.TelegramID]; ok {
		return copyPrincipal(p), nil
	}
	s.nextID++
	p := *cand
	p.ID = s.nextID
	p.Session = &domain.Session{ID: s.nextID, PrincipalID: s.nextID}
	s.principals[cand.TelegramID] = &p
	return copyPrincipal(&p), nil
}

// copyPrincipal mirrors the real store: every load builds fresh structs,
// so callers never share mutable state through the fake.
func copyPrincipal(p *domain.Principal) *domain.Principal {
	cp := *p
	sess := *p.Session
	sess.ContextData = append([]byte(nil), p.Session.ContextData...)
	cp.Session = &sess
	return &cp
}

func (s *fakeStore) UpdateSession(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.principals {
		if p.Session.ID == sess.ID {
			cp := *sess
			cp.ContextData = append([]byte(nil), sess.ContextData...)
			*p.Session = cp
			s.writes = append(s.writes, cp)
			return nil
		}
	}
	return fmt.Errorf("session %d not found", sess.ID)
}

func (s *fakeStore) ServiceByCommand(_ context.Context, command string) (*domain.Service, error) {
	return s.services[command], nil
}

func (s *fakeStore) RootService(context.Context) (*domain.Service, error) {
	return s.root, nil
}

type fetchCall struct {
	ep        fetch.Endpoint
	utilityID string
	trxID     string
}

type fakeFetcher struct {
	mu    sync.Mutex
	link  string
	err   error
	calls []fetchCall
}

func (f *fakeFetcher) FetchLink(_ context.Context, ep fetch.Endpoint, utilityID, trxID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{ep: ep, utilityID: utilityID, trxID: trxID})
	if f.err != nil {
		return "", f.err
	}
	return f.link, nil
}

// --- Fixtures ---

const pricingLines = `[{"from":500,"to":2500,"fee":50},{"from":2501,"to":175000,"fee":0.02}]`

// serviceTree builds the test catalog: a menu with four children, a cash-out
// offer (one or two providers) and a single-provider receipt offer with two
// utility companies.
func serviceTree(multiCash bool) (map[string]*domain.Service, *domain.Service) {
	root := &domain.Service{ID: 1, Command: "/start", EnDesc: "Main menu", FrDesc: "Menu principal"}
	cashout := &domain.Service{ID: 2, Command: "/cashout", EnDesc: "Cash out", FrDesc: "Retrait", ParentID: 1, Parent: root}
	cashin := &domain.Service{ID: 3, Command: "/cashin", EnDesc: "Cash in", FrDesc: "Dépôt", ParentID: 1, Parent: root}
	receipt := &domain.Service{ID: 4, Command: "/receipt", EnDesc: "Download a receipt", FrDesc: "Télécharger un reçu", ParentID: 1, Parent: root}
	about := &domain.Service{ID: 5, Command: "/about", EnDesc: "About this bot", FrDesc: "À propos", ParentID: 1, Parent: root}
	root.Children = []*domain.Service{cashout, cashin, receipt, about}

	mtn := &domain.Provider{
		ID:   1,
		Name: "MTN MoMo",
		Utilities: []domain.Utility{
			{ID: "eneo", CompanyName: "ENEO"},
			{ID: "camwater", CompanyName: "CamWater"},
		},
		Config: &domain.ProviderConfig{
			ID:             1,
			ProviderID:     1,
			ReceiptURL:     "https://receipts.example/api?utility=%s&trx=%s",
			ReceiptHost:    "receipts.example",
			ReceiptReferer: "https://portal.example/",
			TrxIDLength:    20,
		},
	}
	pricing := &domain.Pricing{ID: 1, Name: "standard", Lines: pricingLines}

	cashout.Catalogs = []*domain.Catalog{
		{ProviderID: 1, ServiceID: 2, PricingID: 1, Provider: mtn, Pricing: pricing},
	}
	if multiCash {
		orange := &domain.Provider{ID: 2, Name: "Orange Money"}
		cashout.Catalogs = append(cashout.Catalogs,
			&domain.Catalog{ProviderID: 2, ServiceID: 2, PricingID: 1, Provider: orange, Pricing: pricing})
	}
	receipt.Catalogs = []*domain.Catalog{
		{ProviderID: 1, ServiceID: 4, Provider: mtn},
	}

	services := map[string]*domain.Service{
		"/start": root, "/cashout": cashout, "/cashin": cashin, "/receipt": receipt, "/about": about,
	}
	return services, root
}

// --- Harness ---

type harness struct {
	t       *testing.T
	eng     *Engine
	api     *fakeAPI
	store   *fakeStore
	fetcher *fakeFetcher
	seq     int64
	user    telegram.User
}

func newHarness(t *testing.T, multiCash bool) *harness {
	t.Helper()
	services, root := serviceTree(multiCash)
	h := &harness{
		t:       t,
		store:   newFakeStore(services, root),
		fetcher: &fakeFetcher{link: "https://docs.example/receipt.pdf"},
		user:    telegram.User{ID: 7, FirstName: "Ada", LanguageCode: "en"},
	}
	h.api = &fakeAPI{seq: &h.seq}
	log := logging.New(nil, "silent")
	h.eng = New(h.api, h.store, h.fetcher, Options{
		Admins:        []int64{99},
		CacheCapacity: 64,
		MessageWeight: 1,
		SlidingTTL:    time.Hour,
	}, log)
	return h
}

// sendText delivers a typed chat message from the test user.
func (h *harness) sendText(text string) {
	id := atomic.AddInt64(&h.seq, 1)
	h.eng.HandleUpdate(context.Background(), telegram.Update{
		UpdateID: id,
		Message: &telegram.Message{
			MessageID: id,
			From:      &h.user,
			Chat:      telegram.Chat{ID: h.user.ID, Type: "private"},
			Text:      text,
		},
	})
}

// press delivers a button press on the bot's most recent message.
func (h *harness) press(data string) {
	h.eng.HandleUpdate(context.Background(), telegram.Update{
		UpdateID: atomic.AddInt64(&h.seq, 1),
		CallbackQuery: &telegram.CallbackQuery{
			ID:   "cb",
			From: h.user,
			Message: &telegram.Message{
				MessageID: h.api.lastID,
				Chat:      telegram.Chat{ID: h.user.ID, Type: "private"},
			},
			Data: data,
		},
	})
}

func (h *harness) session() *domain.Session {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	p, ok := h.store.principals[h.user.ID]
	require.True(h.t, ok, "principal not created")
	return p.Session
}

func (h *harness) cashContext() domain.CashContext {
	var data domain.CashContext
	require.NoError(h.t, json.Unmarshal(h.session().ContextData, &data))
	return data
}

func (h *harness) receiptContext() domain.ReceiptContext {
	var data domain.ReceiptContext
	require.NoError(h.t, json.Unmarshal(h.session().ContextData, &data))
	return data
}

// --- Dispatch ---

func TestHandleUpdate_IgnoresBots(t *testing.T) {
	h := newHarness(t, false)
	h.user.IsBot = true

	h.sendText("/start")

	assert.Zero(t, h.store.finds)
	assert.Empty(t, h.api.sends)
}

func TestHandleUpdate_PrincipalCachedBetweenReadOnlyTurns(t *testing.T) {
	h := newHarness(t, false)

	// The first turn claims the session and serves the menu; each session
	// write drops the cached principal.
	h.sendText("/start")
	require.Equal(t, 1, h.store.finds)

	// The second turn reloads, absorbs the repeat without writing, and
	// leaves the principal cached for the third.
	h.sendText("/start")
	require.Equal(t, 2, h.store.finds)
	h.sendText("/start")
	assert.Equal(t, 2, h.store.finds)
}

func TestSessionWrite_InvalidatesPrincipalCache(t *testing.T) {
	h := newHarness(t, false)
	h.sendText("/cashout")
	require.Equal(t, "AwaitingProvider", h.session().State)
	finds := h.store.finds

	// The previous turn wrote the session, so this turn must load a fresh
	// principal copy instead of reusing the one that turn mutated.
	h.press("true")
	assert.Greater(t, h.store.finds, finds)
	assert.Equal(t, "AwaitingAmount", h.session().State)
}

func TestHandleUpdate_UnknownInputFallsBackToMenu(t *testing.T) {
	h := newHarness(t, false)

	h.sendText("hello there")

	require.Len(t, h.api.sends, 1)
	assert.Contains(t, h.api.sends[0].text, "Welcome Ada")
	assert.Equal(t, "/start", h.session().Context)
}

// --- Menu ---

func TestMenu_ServedOnce(t *testing.T) {
	h := newHarness(t, false)

	h.sendText("/start")

	require.Len(t, h.api.sends, 1)
	msg := h.api.sends[0]
	assert.Equal(t, h.user.ID, msg.chatID)
	assert.Contains(t, msg.text, "Welcome Ada")
	require.NotNil(t, msg.kb)
	assert.Len(t, msg.kb.InlineKeyboard, 4)
	assert.Equal(t, "MenuServed", h.session().State)

	// A repeated command is absorbed: the typed message is deleted and
	// nothing new is sent.
	h.sendText("/start")
	assert.Len(t, h.api.sends, 1)
	assert.Len(t, h.api.deletes, 1)
}

func TestMenu_FrenchLocale(t *testing.T) {
	h := newHarness(t, false)
	h.user.LanguageCode = "fr"

	h.sendText("/start")

	require.Len(t, h.api.sends, 1)
	assert.Contains(t, h.api.sends[0].text, "Bienvenue Ada")
}

// --- About ---

func TestAbout_ServesInfo(t *testing.T) {
	h := newHarness(t, false)

	h.sendText("/about")

	require.Len(t, h.api.sends, 1)
	assert.Contains(t, h.api.sends[0].text, maintainerLink)
	assert.Equal(t, "InfoServed", h.session().State)
	assert.Equal(t, "/about", h.session().Context)
}

// --- Cash movement ---

func TestCashOut_SingleProviderFlow(t *testing.T) {
	h := newHarness(t, false)

	h.sendText("/cashout")

	require.Len(t, h.api.sends, 1)
	confirm := h.api.sends[0]
	assert.Contains(t, confirm.text, "MTN MoMo")
	assert.Contains(t, confirm.text, "Continue?")
	assert.Equal(t, "/cashout", h.session().Context)
	assert.Equal(t, "AwaitingProvider", h.session().State)

	// Accepting the single offer edits the confirm message in place.
	h.press("true")
	require.Len(t, h.api.edits, 1)
	assert.Contains(t, h.api.edits[0].text, "withdrawal")
	assert.Equal(t, "AwaitingAmount", h.session().State)
	data := h.cashContext()
	assert.Equal(t, int64(1), data.ProviderID)
	assert.Equal(t, 500.0, data.MinAmount)
	assert.Equal(t, 175000.0, data.MaxAmount)

	// 1000 falls in the flat tier.
	h.sendText("1000")
	assert.Equal(t, "Done", h.session().State)
	result := h.api.lastMessage(t)
	assert.Contains(t, result.text, "50.00")
	assert.Contains(t, result.text, "MTN MoMo")
	require.NotNil(t, result.kb)
	assert.Len(t, result.kb.InlineKeyboard, 3)
	assert.Len(t, h.api.deletes, 1)

	// Retry with a rate-tier amount.
	h.press(string(triggerRetryNewAmount))
	assert.Equal(t, "AwaitingAmount", h.session().State)
	h.sendText("10000")
	assert.Equal(t, "Done", h.session().State)
	assert.Contains(t, h.api.lastMessage(t).text, "200.00")
}

func TestCashOut_ProviderList(t *testing.T) {
	h := newHarness(t, true)

	h.sendText("/cashout")

	msg := h.api.lastMessage(t)
	assert.Contains(t, msg.text, "2 providers")
	require.NotNil(t, msg.kb)
	// Two providers on one row plus the home row.
	require.Len(t, msg.kb.InlineKeyboard, 2)
	assert.Len(t, msg.kb.InlineKeyboard[0], 2)

	h.press("2")
	assert.Equal(t, "AwaitingAmount", h.session().State)
	assert.Equal(t, int64(2), h.cashContext().ProviderID)
}

func TestCashOut_AmountValidation(t *testing.T) {
	h := newHarness(t, false)
	h.sendText("/cashout")
	h.press("true")
	require.Equal(t, "AwaitingAmount", h.session().State)

	cases := []struct {
		input string
		want  string
	}{
		{"abc", "positive number"},
		{"0", "positive number"},
		{"-5", "positive number"},
		{"499.99", "outside the allowed range"},
		{"175000.01", "outside the allowed range"},
	}
	for _, tc := range cases {
		before := len(h.api.deletes)
		h.sendText(tc.input)
		assert.Contains(t, h.api.lastMessage(t).text, tc.want, "input %q", tc.input)
		assert.Equal(t, "AwaitingAmount", h.session().State, "input %q", tc.input)
		assert.Len(t, h.api.deletes, before+1, "input %q", tc.input)
	}

	// The range warning names the schedule bounds.
	h.sendText("499.99")
	warn := h.api.lastMessage(t)
	assert.Contains(t, warn.text, "500")
	assert.Contains(t, warn.text, "175000")

	// Inclusive lower bound.
	h.sendText("500")
	assert.Equal(t, "Done", h.session().State)
	assert.Contains(t, h.api.lastMessage(t).text, "50.00")
}

func TestCashOut_SingleOfferRefused(t *testing.T) {
	h := newHarness(t, false)
	h.sendText("/cashout")

	h.press("false")

	assert.Equal(t, "Done", h.session().State)
	msg := h.api.lastMessage(t)
	assert.Contains(t, msg.text, "What next?")
	require.NotNil(t, msg.kb)
	// No amount recorded, so no new-amount retry: change provider + home.
	require.Len(t, msg.kb.InlineKeyboard, 2)
	assert.Equal(t, string(triggerRetryNewProvider), msg.kb.InlineKeyboard[0][0].CallbackData)
}

func TestCashIn_UsesDepositLabel(t *testing.T) {
	h := newHarness(t, false)
	svc := h.store.services["/cashin"]
	svc.Catalogs = h.store.services["/cashout"].Catalogs

	h.sendText("/cashin")
	h.press("true")

	assert.Contains(t, h.api.lastMessage(t).text, "deposit")
}

func TestCash_SiblingCommandNoOps(t *testing.T) {
	h := newHarness(t, false)
	h.sendText("/cashout")
	h.press("true")
	require.Equal(t, "AwaitingAmount", h.session().State)

	// Drive the workflow directly with a sibling command as input: the
	// dispatcher would route it elsewhere, but the workflow itself must
	// also step aside.
	p := h.store.principals[h.user.ID]
	conv := &conversation{
		eng:       h.eng,
		upd:       telegram.Update{Message: &telegram.Message{MessageID: 999, From: &h.user, Text: "/receipt"}},
		sender:    &h.user,
		principal: p,
		svc:       h.store.services["/cashout"],
		loc:       i18n.ForLanguage("en"),
		log:       logging.New(nil, "silent"),
	}
	w := newCashWorkflow(conv, cashOut)
	sends := len(h.api.sends)

	require.NoError(t, w.Process(context.Background(), "/receipt"))

	assert.Equal(t, "AwaitingAmount", h.session().State)
	assert.Len(t, h.api.sends, sends)
}

func TestWorkflowSwitch_ReclaimsSession(t *testing.T) {
	h := newHarness(t, false)
	h.sendText("/cashout")
	h.press("true")
	require.Equal(t, "AwaitingAmount", h.session().State)
	require.NotNil(t, h.session().ContextData)

	h.sendText("/receipt")

	sess := h.session()
	assert.Equal(t, "/receipt", sess.Context)
	assert.Equal(t, "AwaitingProvider", sess.State)
	assert.Nil(t, sess.ContextData)
}

// --- Admin gating ---

func TestAdminOnly_SilentAbort(t *testing.T) {
	h := newHarness(t, false)
	h.store.services["/cashout"].AdminOnly = true

	h.sendText("/cashout")

	// Nothing sent, nothing claimed.
	assert.Empty(t, h.api.sends)
	assert.Empty(t, h.api.edits)
	assert.Empty(t, h.session().Context)
}

func TestAdminOnly_AdminProceeds(t *testing.T) {
	h := newHarness(t, false)
	h.store.services["/cashout"].AdminOnly = true
	h.user = telegram.User{ID: 99, FirstName: "Root", LanguageCode: "en"}

	h.sendText("/cashout")

	require.Len(t, h.api.sends, 1)
	assert.Equal(t, "AwaitingProvider", h.session().State)
}

// --- Receipt ---

func driveToTrxEntry(t *testing.T, h *harness) {
	t.Helper()
	h.sendText("/receipt")
	h.press("true")
	require.Equal(t, "AwaitingUtilityProvider", h.session().State)
	h.press("eneo")
	require.Equal(t, "AwaitingTransactionId", h.session().State)
}

func TestReceipt_FullFlow(t *testing.T) {
	h := newHarness(t, false)

	h.sendText("/receipt")
	confirm := h.api.lastMessage(t)
	assert.Contains(t, confirm.text, "MTN MoMo")
	assert.Equal(t, "AwaitingProvider", h.session().State)

	h.press("true")
	utilities := h.api.lastMessage(t)
	assert.Contains(t, utilities.text, "2")
	require.NotNil(t, utilities.kb)
	assert.Equal(t, "eneo", utilities.kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, 2, h.receiptContext().UtilityCount)

	h.press("eneo")
	assert.Equal(t, "AwaitingTransactionId", h.session().State)
	assert.Equal(t, "eneo", h.receiptContext().UtilityProviderID)
	assert.Contains(t, h.api.lastMessage(t).text, "transaction id")

	h.sendText("12345678901234567890")

	require.Len(t, h.fetcher.calls, 1)
	call := h.fetcher.calls[0]
	assert.Equal(t, "eneo", call.utilityID)
	assert.Equal(t, "12345678901234567890", call.trxID)
	assert.Equal(t, "receipts.example", call.ep.Host)
	assert.Equal(t, "https://portal.example/", call.ep.Referer)

	require.Len(t, h.api.docs, 1)
	assert.Equal(t, "https://docs.example/receipt.pdf", h.api.docs[0].text)
	assert.Equal(t, "Done", h.session().State)

	// The document dropped the cached message id, so the retry prompt is a
	// fresh message below it.
	prompt := h.api.sends[len(h.api.sends)-1]
	assert.Contains(t, prompt.text, "What next?")
	require.NotNil(t, prompt.kb)
	assert.Len(t, prompt.kb.InlineKeyboard, 4)
}

func TestReceipt_TrxIDValidation(t *testing.T) {
	h := newHarness(t, false)
	driveToTrxEntry(t, h)

	h.sendText(strings.Repeat("9", 19))

	warn := h.api.lastMessage(t)
	assert.Contains(t, warn.text, "20")
	assert.Equal(t, "AwaitingTransactionId", h.session().State)
	assert.Empty(t, h.fetcher.calls)
	assert.NotEmpty(t, h.api.deletes)
}

func TestReceipt_FetchFailureKeepsState(t *testing.T) {
	h := newHarness(t, false)
	h.fetcher.err = fmt.Errorf("gateway timeout")
	driveToTrxEntry(t, h)

	h.sendText(strings.Repeat("9", 20))

	assert.Contains(t, h.api.lastMessage(t).text, "could not be downloaded")
	assert.Equal(t, "AwaitingTransactionId", h.session().State)
	assert.Empty(t, h.api.docs)

	// A retry with a working endpoint goes straight through.
	h.fetcher.err = nil
	h.sendText(strings.Repeat("8", 20))
	assert.Len(t, h.api.docs, 1)
	assert.Equal(t, "Done", h.session().State)
}

func TestReceipt_SingleUtilityConfirm(t *testing.T) {
	h := newHarness(t, false)
	provider := h.store.services["/receipt"].Catalogs[0].Provider
	provider.Utilities = provider.Utilities[:1]

	h.sendText("/receipt")
	h.press("true")
	require.Equal(t, "AwaitingUtilityProvider", h.session().State)
	assert.Equal(t, 1, h.receiptContext().UtilityCount)
	assert.Contains(t, h.api.lastMessage(t).text, "ENEO")

	// Accepting the sole utility records its id, not the button payload.
	h.press("true")
	assert.Equal(t, "AwaitingTransactionId", h.session().State)
	assert.Equal(t, "eneo", h.receiptContext().UtilityProviderID)
}

func TestReceipt_UtilitiesEmptiedBetweenTurns(t *testing.T) {
	h := newHarness(t, false)
	provider := h.store.services["/receipt"].Catalogs[0].Provider
	provider.Utilities = provider.Utilities[:1]

	h.sendText("/receipt")
	h.press("true")
	require.Equal(t, "AwaitingUtilityProvider", h.session().State)
	require.Equal(t, 1, h.receiptContext().UtilityCount)

	// The catalog changed under the running session: accepting the offer
	// must fail the turn, not panic on the recorded single-utility count.
	provider.Utilities = nil
	h.press("true")

	assert.Equal(t, "AwaitingUtilityProvider", h.session().State)
	assert.Empty(t, h.fetcher.calls)
}

func TestReceipt_RetryChoices(t *testing.T) {
	h := newHarness(t, false)
	driveToTrxEntry(t, h)
	h.sendText(strings.Repeat("9", 20))
	require.Equal(t, "Done", h.session().State)

	h.press(string(triggerRetryNewTrxID))
	assert.Equal(t, "AwaitingTransactionId", h.session().State)

	h.sendText(strings.Repeat("7", 20))
	require.Equal(t, "Done", h.session().State)
	h.press(string(triggerRetryNewUtility))
	assert.Equal(t, "AwaitingUtilityProvider", h.session().State)

	h.press("camwater")
	require.Equal(t, "AwaitingTransactionId", h.session().State)
	assert.Equal(t, "camwater", h.receiptContext().UtilityProviderID)
}

func TestReceipt_UnknownRetryReasksUtility(t *testing.T) {
	h := newHarness(t, false)
	driveToTrxEntry(t, h)
	h.sendText(strings.Repeat("9", 20))
	require.Equal(t, "Done", h.session().State)

	h.press("garbage")

	assert.Equal(t, "AwaitingUtilityProvider", h.session().State)
}

// --- Send-or-edit ---

func TestSendOrEdit_AntiFlood(t *testing.T) {
	h := newHarness(t, false)

	// First contact: no cached id, so a fresh send.
	h.sendText("/cashout")
	require.Len(t, h.api.sends, 1)

	// Button press triggers on the cached bot message: edit in place.
	h.press("true")
	require.Len(t, h.api.edits, 1)
	assert.Equal(t, h.api.sends[0].messageID, h.api.edits[0].messageID)

	// A typed message outranks the cached id: fresh send again.
	h.sendText("1000")
	require.Len(t, h.api.sends, 2)
	assert.Greater(t, h.api.sends[1].messageID, h.api.sends[0].messageID)
}

func TestSendOrEdit_TypingAction(t *testing.T) {
	h := newHarness(t, false)

	h.sendText("/start")

	require.NotEmpty(t, h.api.actions)
	assert.Equal(t, telegram.ActionTyping, h.api.actions[0])
}
