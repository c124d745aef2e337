package describer

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/convene/internal/env"
	"github.com/fyrsmithlabs/convene/internal/message"
)

// Config holds Basic describer settings.
type Config struct {
	// HistoryWindow bounds how many recent history messages are considered.
	HistoryWindow int `koanf:"history_window"`
}

// ApplyDefaults fills zero values with sane defaults.
func (c *Config) ApplyDefaults() {
	if c.HistoryWindow == 0 {
		c.HistoryWindow = 20
	}
}

// Basic renders a header plus the visible slice of recent history.
type Basic struct {
	cfg Config
}

// NewBasic builds a describer.
func NewBasic(cfg Config) *Basic {
	cfg.ApplyDefaults()
	return &Basic{cfg: cfg}
}

// Describe renders the actor's context for the current turn. Only
// messages from senders the actor can currently see are included.
func (d *Basic) Describe(_ context.Context, view *env.ActorView) (string, error) {
	var b strings.Builder
	visible := view.Visibility.Visible(view.ActorID)
	fmt.Fprintf(&b, "turn %d, you are %s\n", view.State.Turn(), view.ActorID)
	fmt.Fprintf(&b, "visible: %s\n", strings.Join(visible, ", "))

	tail := view.State.HistoryTail(d.cfg.HistoryWindow)
	shown := 0
	for _, msg := range tail {
		if !d.visibleTo(view, msg) {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", msg.Sender, msg.Content)
		shown++
	}
	if shown == 0 {
		b.WriteString("no visible history yet\n")
	}
	return b.String(), nil
}

// visibleTo reports whether the actor may observe a history message.
// System and self messages are always visible.
func (d *Basic) visibleTo(view *env.ActorView, msg *message.Message) bool {
	if msg.IsSystem() || msg.Sender == view.ActorID {
		return true
	}
	return view.Visibility.CanSee(view.ActorID, msg.Sender)
}
