package describer

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/convene/internal/env"
)

// MemoryConfig holds MemoryAugmented describer settings.
type MemoryConfig struct {
	Basic Config `koanf:"basic"`
	// RecallLimit bounds how many recalled messages are appended.
	RecallLimit int `koanf:"recall_limit"`
}

// ApplyDefaults fills zero values with sane defaults.
func (c *MemoryConfig) ApplyDefaults() {
	c.Basic.ApplyDefaults()
	if c.RecallLimit == 0 {
		c.RecallLimit = 5
	}
}

// MemoryAugmented extends Basic with recalled messages from the actor's
// own memory, queried with the most recent visible content.
type MemoryAugmented struct {
	cfg   MemoryConfig
	basic *Basic
}

// NewMemoryAugmented builds a memory-augmented describer.
func NewMemoryAugmented(cfg MemoryConfig) *MemoryAugmented {
	cfg.ApplyDefaults()
	return &MemoryAugmented{cfg: cfg, basic: NewBasic(cfg.Basic)}
}

// Describe renders the basic context plus a recall section. Recall
// failures degrade to the basic description rather than failing the turn.
func (d *MemoryAugmented) Describe(ctx context.Context, view *env.ActorView) (string, error) {
	base, err := d.basic.Describe(ctx, view)
	if err != nil {
		return "", err
	}
	if view.Memory == nil {
		return base, nil
	}

	query := d.recallQuery(view)
	if query == "" {
		return base, nil
	}
	recalled, err := view.Memory.Search(ctx, query, d.cfg.RecallLimit)
	if err != nil || len(recalled) == 0 {
		return base, nil
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("recalled:\n")
	for _, msg := range recalled {
		fmt.Fprintf(&b, "%s: %s\n", msg.Sender, msg.Content)
	}
	return b.String(), nil
}

// recallQuery picks the newest visible history content as the query.
func (d *MemoryAugmented) recallQuery(view *env.ActorView) string {
	tail := view.State.HistoryTail(d.cfg.Basic.HistoryWindow)
	for i := len(tail) - 1; i >= 0; i-- {
		msg := tail[i]
		if d.basic.visibleTo(view, msg) && strings.TrimSpace(msg.Content) != "" {
			return msg.Content
		}
	}
	return ""
}
