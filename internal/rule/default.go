package rule

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convene/internal/describer"
	"github.com/fyrsmithlabs/convene/internal/env"
	"github.com/fyrsmithlabs/convene/internal/order"
	"github.com/fyrsmithlabs/convene/internal/selector"
	"github.com/fyrsmithlabs/convene/internal/updater"
	"github.com/fyrsmithlabs/convene/internal/visibility"
)

// Built-in kind names.
const (
	OrderSequential      = "sequential"
	OrderPriority        = "priority"
	OrderConcurrent      = "concurrent"
	OrderRandom          = "random"
	VisibilityAll        = "all"
	VisibilitySelfOnly   = "self_only"
	VisibilityGroup      = "group"
	VisibilityPhase      = "phase"
	SelectorBasic        = "basic"
	UpdaterBasic         = "basic"
	DescriberBasic       = "basic"
	DescriberMemoryAware = "memory"
)

// Default returns a registry with every built-in policy registered.
// The conditional order takes Go predicates and nested strategies, so
// it is composed in code rather than declared by kind.
func Default() *Registry {
	r := NewRegistry()

	// Registration of built-ins cannot collide in a fresh registry.
	_ = r.RegisterOrder(OrderSequential, func(params map[string]any, _ *zap.Logger) (env.Order, error) {
		var cfg order.SequentialConfig
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return order.NewSequential(cfg), nil
	})
	_ = r.RegisterOrder(OrderPriority, func(params map[string]any, _ *zap.Logger) (env.Order, error) {
		var cfg order.PriorityConfig
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return order.NewPriority(cfg), nil
	})
	_ = r.RegisterOrder(OrderConcurrent, func(params map[string]any, _ *zap.Logger) (env.Order, error) {
		var cfg order.ConcurrentConfig
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return order.NewConcurrent(cfg), nil
	})
	_ = r.RegisterOrder(OrderRandom, func(params map[string]any, _ *zap.Logger) (env.Order, error) {
		var cfg order.RandomConfig
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return order.NewRandom(cfg), nil
	})

	_ = r.RegisterVisibility(VisibilityAll, func(params map[string]any, _ *zap.Logger) (env.Visibility, error) {
		var cfg visibility.AllConfig
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return visibility.NewAll(cfg), nil
	})
	_ = r.RegisterVisibility(VisibilitySelfOnly, func(params map[string]any, _ *zap.Logger) (env.Visibility, error) {
		var cfg visibility.SelfOnlyConfig
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return visibility.NewSelfOnly(cfg), nil
	})
	_ = r.RegisterVisibility(VisibilityGroup, func(params map[string]any, _ *zap.Logger) (env.Visibility, error) {
		var cfg visibility.GroupConfig
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return visibility.NewGroup(cfg)
	})
	_ = r.RegisterVisibility(VisibilityPhase, func(params map[string]any, _ *zap.Logger) (env.Visibility, error) {
		var cfg visibility.PhaseConfig
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return visibility.NewPhase(cfg), nil
	})

	_ = r.RegisterSelector(SelectorBasic, func(params map[string]any, _ *zap.Logger) (env.Selector, error) {
		var cfg selector.Config
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return selector.NewBasic(cfg)
	})

	_ = r.RegisterUpdater(UpdaterBasic, func(params map[string]any, logger *zap.Logger) (env.Updater, error) {
		var cfg updater.Config
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return updater.NewBasic(cfg, logger.Named("updater")), nil
	})

	_ = r.RegisterDescriber(DescriberBasic, func(params map[string]any, _ *zap.Logger) (env.Describer, error) {
		var cfg describer.Config
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return describer.NewBasic(cfg), nil
	})
	_ = r.RegisterDescriber(DescriberMemoryAware, func(params map[string]any, _ *zap.Logger) (env.Describer, error) {
		var cfg describer.MemoryConfig
		if err := DecodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return describer.NewMemoryAugmented(cfg), nil
	})

	return r
}
