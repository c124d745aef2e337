package selector

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/convene/internal/env"
	"github.com/fyrsmithlabs/convene/internal/message"
)

// Strategy names the acceptance step applied after content filtering.
type Strategy string

const (
	// StrategyPassthrough accepts every candidate that survived filtering.
	StrategyPassthrough Strategy = "passthrough"
	// StrategyRecent keeps only the most recently created candidates,
	// bounded by Window.
	StrategyRecent Strategy = "recent"
	// StrategySenders keeps only candidates from allowed sender ids.
	StrategySenders Strategy = "senders"
)

// Pipeline stage labels used for drop accounting.
const (
	stageFailed   = "failed"
	stageEmpty    = "empty"
	stageLength   = "length"
	stageContent  = "content"
	stageSender   = "sender"
	stageStrategy = "strategy"
	stageDedupe   = "dedupe"
	stageCap      = "cap"
)

// Config holds Basic selector settings.
type Config struct {
	// DropEmpty drops messages whose content is empty or whitespace-only.
	DropEmpty bool `koanf:"drop_empty"`
	// MinLength drops content shorter than this many bytes. Zero disables.
	MinLength int `koanf:"min_length"`
	// MaxLength drops content longer than this many bytes. Zero disables.
	MaxLength int `koanf:"max_length"`
	// BlockedContent drops messages containing any of these literals.
	BlockedContent []string `koanf:"blocked_content"`
	// BlockedPatterns drops messages matching any of these regular expressions.
	BlockedPatterns []string `koanf:"blocked_patterns"`
	// BlockedSenders drops messages from these sender ids.
	BlockedSenders []string `koanf:"blocked_senders"`
	// Strategy selects the acceptance step. Defaults to passthrough.
	Strategy Strategy `koanf:"strategy"`
	// Window bounds the recent strategy to the newest N candidates.
	Window int `koanf:"window"`
	// AllowedSenders lists sender ids kept by the senders strategy.
	AllowedSenders []string `koanf:"allowed_senders"`
	// Dedupe drops candidates whose normalized content was already accepted.
	Dedupe bool `koanf:"dedupe"`
	// MaxSelections caps the number of accepted messages per turn.
	// Zero disables the cap.
	MaxSelections int `koanf:"max_selections"`
}

// ApplyDefaults fills zero values with sane defaults.
func (c *Config) ApplyDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyPassthrough
	}
	if c.Strategy == StrategyRecent && c.Window == 0 {
		c.Window = 10
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyPassthrough, StrategyRecent, StrategySenders:
	default:
		return fmt.Errorf("%w: unknown selector strategy %q", env.ErrConfiguration, c.Strategy)
	}
	if c.Strategy == StrategyRecent && c.Window <= 0 {
		return fmt.Errorf("%w: recent strategy requires a positive window", env.ErrConfiguration)
	}
	if c.Strategy == StrategySenders && len(c.AllowedSenders) == 0 {
		return fmt.Errorf("%w: senders strategy requires allowed_senders", env.ErrConfiguration)
	}
	if c.MinLength < 0 || c.MaxLength < 0 {
		return fmt.Errorf("%w: length bounds must be non-negative", env.ErrConfiguration)
	}
	if c.MaxLength > 0 && c.MinLength > c.MaxLength {
		return fmt.Errorf("%w: min_length %d exceeds max_length %d", env.ErrConfiguration, c.MinLength, c.MaxLength)
	}
	if c.MaxSelections < 0 {
		return fmt.Errorf("%w: max_selections must be non-negative", env.ErrConfiguration)
	}
	return nil
}

// Basic applies the filter pipeline to turn outcomes.
type Basic struct {
	cfg            Config
	patterns       []*regexp.Regexp
	blockedSenders map[string]struct{}
	allowedSenders map[string]struct{}
}

// NewBasic builds a selector, compiling blocked patterns up front.
func NewBasic(cfg Config) (*Basic, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Basic{
		cfg:            cfg,
		blockedSenders: make(map[string]struct{}, len(cfg.BlockedSenders)),
		allowedSenders: make(map[string]struct{}, len(cfg.AllowedSenders)),
	}
	for _, p := range cfg.BlockedPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: blocked pattern %q: %v", env.ErrConfiguration, p, err)
		}
		s.patterns = append(s.patterns, re)
	}
	for _, id := range cfg.BlockedSenders {
		s.blockedSenders[id] = struct{}{}
	}
	for _, id := range cfg.AllowedSenders {
		s.allowedSenders[id] = struct{}{}
	}
	return s, nil
}

// Select runs the pipeline over a batch of outcomes and returns the
// accepted messages in arrival order. An empty result is not an error.
func (s *Basic) Select(_ context.Context, outcomes []env.Outcome) ([]*message.Message, error) {
	candidates := make([]*message.Message, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Failed() || o.Message == nil {
			stageDropped.WithLabelValues(stageFailed).Inc()
			continue
		}
		candidates = append(candidates, o.Message)
	}

	candidates = s.filter(candidates, stageEmpty, func(m *message.Message) bool {
		return !s.cfg.DropEmpty || strings.TrimSpace(m.Content) != ""
	})
	candidates = s.filter(candidates, stageLength, func(m *message.Message) bool {
		n := len(m.Content)
		if s.cfg.MinLength > 0 && n < s.cfg.MinLength {
			return false
		}
		if s.cfg.MaxLength > 0 && n > s.cfg.MaxLength {
			return false
		}
		return true
	})
	candidates = s.filter(candidates, stageContent, func(m *message.Message) bool {
		for _, lit := range s.cfg.BlockedContent {
			if strings.Contains(m.Content, lit) {
				return false
			}
		}
		for _, re := range s.patterns {
			if re.MatchString(m.Content) {
				return false
			}
		}
		return true
	})
	candidates = s.filter(candidates, stageSender, func(m *message.Message) bool {
		_, blocked := s.blockedSenders[m.Sender]
		return !blocked
	})

	candidates = s.applyStrategy(candidates)

	if s.cfg.Dedupe {
		seen := make(map[string]struct{}, len(candidates))
		candidates = s.filter(candidates, stageDedupe, func(m *message.Message) bool {
			key := m.NormalizedContent()
			if _, dup := seen[key]; dup {
				return false
			}
			seen[key] = struct{}{}
			return true
		})
	}

	if s.cfg.MaxSelections > 0 && len(candidates) > s.cfg.MaxSelections {
		for _, m := range candidates[s.cfg.MaxSelections:] {
			stageDropped.WithLabelValues(stageCap).Inc()
			actorResults.WithLabelValues(m.Sender, "filtered").Inc()
		}
		candidates = candidates[:s.cfg.MaxSelections]
	}

	for _, m := range candidates {
		actorResults.WithLabelValues(m.Sender, "selected").Inc()
	}
	return candidates, nil
}

func (s *Basic) filter(in []*message.Message, stage string, keep func(*message.Message) bool) []*message.Message {
	out := in[:0]
	for _, m := range in {
		if keep(m) {
			out = append(out, m)
			continue
		}
		stageDropped.WithLabelValues(stage).Inc()
		actorResults.WithLabelValues(m.Sender, "filtered").Inc()
	}
	return out
}

func (s *Basic) applyStrategy(in []*message.Message) []*message.Message {
	switch s.cfg.Strategy {
	case StrategyRecent:
		if len(in) <= s.cfg.Window {
			return in
		}
		// Keep the newest Window messages, preserving arrival order.
		idx := make([]int, len(in))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return in[idx[a]].CreatedAt.After(in[idx[b]].CreatedAt)
		})
		kept := make(map[int]struct{}, s.cfg.Window)
		for _, i := range idx[:s.cfg.Window] {
			kept[i] = struct{}{}
		}
		return s.filterIndexed(in, kept)
	case StrategySenders:
		return s.filter(in, stageStrategy, func(m *message.Message) bool {
			_, ok := s.allowedSenders[m.Sender]
			return ok
		})
	default:
		return in
	}
}

func (s *Basic) filterIndexed(in []*message.Message, kept map[int]struct{}) []*message.Message {
	out := in[:0]
	for i, m := range in {
		if _, ok := kept[i]; ok {
			out = append(out, m)
			continue
		}
		stageDropped.WithLabelValues(stageStrategy).Inc()
		actorResults.WithLabelValues(m.Sender, "filtered").Inc()
	}
	return out
}
