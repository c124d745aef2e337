package rule

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convene/internal/env"
)

// KindSpec names one policy implementation and its parameters.
type KindSpec struct {
	Kind   string         `koanf:"kind"`
	Params map[string]any `koanf:"params"`
}

// Spec declares a complete policy bundle by kind.
type Spec struct {
	Order      KindSpec `koanf:"order"`
	Visibility KindSpec `koanf:"visibility"`
	Selector   KindSpec `koanf:"selector"`
	Updater    KindSpec `koanf:"updater"`
	Describer  KindSpec `koanf:"describer"`
}

// Factory signatures, one per policy slot. Params arrive as decoded
// YAML maps; factories own their interpretation.
type (
	OrderFactory      func(params map[string]any, logger *zap.Logger) (env.Order, error)
	VisibilityFactory func(params map[string]any, logger *zap.Logger) (env.Visibility, error)
	SelectorFactory   func(params map[string]any, logger *zap.Logger) (env.Selector, error)
	UpdaterFactory    func(params map[string]any, logger *zap.Logger) (env.Updater, error)
	DescriberFactory  func(params map[string]any, logger *zap.Logger) (env.Describer, error)
)

// Registry maps kind names to policy factories.
type Registry struct {
	orders       map[string]OrderFactory
	visibilities map[string]VisibilityFactory
	selectors    map[string]SelectorFactory
	updaters     map[string]UpdaterFactory
	describers   map[string]DescriberFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		orders:       make(map[string]OrderFactory),
		visibilities: make(map[string]VisibilityFactory),
		selectors:    make(map[string]SelectorFactory),
		updaters:     make(map[string]UpdaterFactory),
		describers:   make(map[string]DescriberFactory),
	}
}

// RegisterOrder adds an order factory. Re-registering a kind is an error.
func (r *Registry) RegisterOrder(kind string, f OrderFactory) error {
	if _, dup := r.orders[kind]; dup {
		return fmt.Errorf("%w: order kind %q already registered", env.ErrConfiguration, kind)
	}
	r.orders[kind] = f
	return nil
}

// RegisterVisibility adds a visibility factory.
func (r *Registry) RegisterVisibility(kind string, f VisibilityFactory) error {
	if _, dup := r.visibilities[kind]; dup {
		return fmt.Errorf("%w: visibility kind %q already registered", env.ErrConfiguration, kind)
	}
	r.visibilities[kind] = f
	return nil
}

// RegisterSelector adds a selector factory.
func (r *Registry) RegisterSelector(kind string, f SelectorFactory) error {
	if _, dup := r.selectors[kind]; dup {
		return fmt.Errorf("%w: selector kind %q already registered", env.ErrConfiguration, kind)
	}
	r.selectors[kind] = f
	return nil
}

// RegisterUpdater adds an updater factory.
func (r *Registry) RegisterUpdater(kind string, f UpdaterFactory) error {
	if _, dup := r.updaters[kind]; dup {
		return fmt.Errorf("%w: updater kind %q already registered", env.ErrConfiguration, kind)
	}
	r.updaters[kind] = f
	return nil
}

// RegisterDescriber adds a describer factory.
func (r *Registry) RegisterDescriber(kind string, f DescriberFactory) error {
	if _, dup := r.describers[kind]; dup {
		return fmt.Errorf("%w: describer kind %q already registered", env.ErrConfiguration, kind)
	}
	r.describers[kind] = f
	return nil
}

// Build resolves every slot of a Spec and assembles a validated Rule.
func (r *Registry) Build(spec Spec, logger *zap.Logger) (*env.Rule, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	of, ok := r.orders[spec.Order.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown order kind %q", env.ErrConfiguration, spec.Order.Kind)
	}
	order, err := of(spec.Order.Params, logger)
	if err != nil {
		return nil, fmt.Errorf("building order %q: %w", spec.Order.Kind, err)
	}

	vf, ok := r.visibilities[spec.Visibility.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown visibility kind %q", env.ErrConfiguration, spec.Visibility.Kind)
	}
	vis, err := vf(spec.Visibility.Params, logger)
	if err != nil {
		return nil, fmt.Errorf("building visibility %q: %w", spec.Visibility.Kind, err)
	}

	sf, ok := r.selectors[spec.Selector.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown selector kind %q", env.ErrConfiguration, spec.Selector.Kind)
	}
	sel, err := sf(spec.Selector.Params, logger)
	if err != nil {
		return nil, fmt.Errorf("building selector %q: %w", spec.Selector.Kind, err)
	}

	uf, ok := r.updaters[spec.Updater.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown updater kind %q", env.ErrConfiguration, spec.Updater.Kind)
	}
	upd, err := uf(spec.Updater.Params, logger)
	if err != nil {
		return nil, fmt.Errorf("building updater %q: %w", spec.Updater.Kind, err)
	}

	df, ok := r.describers[spec.Describer.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown describer kind %q", env.ErrConfiguration, spec.Describer.Kind)
	}
	desc, err := df(spec.Describer.Params, logger)
	if err != nil {
		return nil, fmt.Errorf("building describer %q: %w", spec.Describer.Kind, err)
	}

	rule := &env.Rule{
		Order:      order,
		Visibility: vis,
		Selector:   sel,
		Updater:    upd,
		Describer:  desc,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

// DecodeParams maps free-form spec parameters onto a typed config
// struct, honoring koanf field tags and duration strings.
func DecodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "koanf",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("building decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: decoding params: %v", env.ErrConfiguration, err)
	}
	return nil
}
