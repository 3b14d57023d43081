package engine

import (
	"context"

	"github.com/soyeahso/tellerbot/internal/i18n"
)

// maintainerLink is shown in the about message for support requests.
const maintainerLink = "https://t.me/soyeahso"

// About workflow states and triggers.
const (
	stateInfoServed State = "InfoServed"

	triggerAskInfo Trigger = "AskInfo"
)

// aboutWorkflow serves the static bot description.
type aboutWorkflow struct {
	conv    *conversation
	machine *Machine
}

func newAboutWorkflow(conv *conversation) *aboutWorkflow {
	w := &aboutWorkflow{conv: conv}
	w.machine = NewMachine(conv).
		Permit(StateIdle, triggerAskInfo, stateInfoServed).
		OnEntry(stateInfoServed, w.showInfo)
	return w
}

func (w *aboutWorkflow) Process(ctx context.Context, data string) error {
	proceed, err := w.conv.begin(ctx)
	if err != nil || !proceed {
		return err
	}

	switch w.machine.State() {
	case StateIdle:
		return w.machine.Fire(ctx, triggerAskInfo)
	case stateInfoServed:
		w.conv.deleteTrigger(ctx)
		return nil
	}
	return nil
}

func (w *aboutWorkflow) showInfo(ctx context.Context) error {
	c := w.conv
	text := c.loc.T(i18n.About, c.desc(), maintainerLink)
	kb := keyboardOf(nil, 1, backRow(c.svc.Parent, c.loc))
	return c.sendOrEdit(ctx, text, kb)
}
