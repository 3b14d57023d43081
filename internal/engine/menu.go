package engine

import (
	"context"

	"github.com/soyeahso/tellerbot/internal/i18n"
)

// Menu workflow states and triggers.
const (
	stateMenuServed State = "MenuServed"

	triggerAskMenu Trigger = "AskMenu"
)

// menuWorkflow serves the root service list. Once the menu is on screen it
// stays there: repeated inputs are absorbed, typed ones deleted.
type menuWorkflow struct {
	conv    *conversation
	machine *Machine
}

func newMenuWorkflow(conv *conversation) *menuWorkflow {
	w := &menuWorkflow{conv: conv}
	w.machine = NewMachine(conv).
		Permit(StateIdle, triggerAskMenu, stateMenuServed).
		OnEntry(stateMenuServed, w.showMenu)
	return w
}

func (w *menuWorkflow) Process(ctx context.Context, data string) error {
	proceed, err := w.conv.begin(ctx)
	if err != nil || !proceed {
		return err
	}

	switch w.machine.State() {
	case StateIdle:
		return w.machine.Fire(ctx, triggerAskMenu)
	case stateMenuServed:
		w.conv.deleteTrigger(ctx)
		return nil
	}
	return nil
}

func (w *menuWorkflow) showMenu(ctx context.Context) error {
	c := w.conv
	text := c.loc.T(i18n.WelcomeSelectService, c.desc(), c.principal.FirstName)
	return c.sendOrEdit(ctx, text, servicesKeyboard(c.svc, c.loc))
}
