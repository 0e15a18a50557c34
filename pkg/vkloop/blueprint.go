package vkloop

import (
	"fmt"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
	"github.com/mkorobkov/vkloop/pkg/vkloop/rules"
)

// Blueprint collects handler registrations for deferred installation,
// so a large bot can split registration across packages and share
// default rules between related handlers. Registrations take effect
// when the blueprint is installed with Dispatcher.UseBlueprint.
type Blueprint struct {
	name         string
	defaultRules []rules.Rule
	defaultNamed map[string]any
	entries      []blueprintEntry
}

type blueprintEntry struct {
	eventType event.Type
	fn        HandlerFunc
	named     map[string]any
	opts      []HandlerOption
}

// BlueprintOption configures a Blueprint.
type BlueprintOption func(*Blueprint)

// WithDefaultRules prepends rules to every handler in the blueprint.
func WithDefaultRules(rs ...rules.Rule) BlueprintOption {
	return func(b *Blueprint) {
		b.defaultRules = append(b.defaultRules, rs...)
	}
}

// WithDefaultNamed adds factory-built rules to every handler in the
// blueprint. A handler's own named rule with the same name wins.
func WithDefaultNamed(named map[string]any) BlueprintOption {
	return func(b *Blueprint) {
		for k, v := range named {
			b.defaultNamed[k] = v
		}
	}
}

// NewBlueprint creates an empty blueprint.
func NewBlueprint(name string, opts ...BlueprintOption) *Blueprint {
	b := &Blueprint{
		name:         name,
		defaultNamed: map[string]any{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the blueprint name.
func (b *Blueprint) Name() string {
	return b.name
}

// Handle adds a handler for events of type t.
func (b *Blueprint) Handle(t event.Type, fn HandlerFunc, opts ...HandlerOption) *Blueprint {
	b.entries = append(b.entries, blueprintEntry{eventType: t, fn: fn, opts: opts})
	return b
}

// HandleMessage adds a new-message handler behind rs.
func (b *Blueprint) HandleMessage(fn HandlerFunc, rs ...rules.Rule) *Blueprint {
	return b.Handle(event.TypeMessageNew, fn, WithRules(rs...))
}

// HandleNamed adds a handler behind factory-built rules.
func (b *Blueprint) HandleNamed(t event.Type, fn HandlerFunc, named map[string]any, opts ...HandlerOption) *Blueprint {
	b.entries = append(b.entries, blueprintEntry{eventType: t, fn: fn, named: named, opts: opts})
	return b
}

// UseBlueprint installs every blueprint handler on the dispatcher. The
// blueprint's default rules are prepended to each handler's chain and
// its default named rules merged in; factory errors surface here,
// before anything is dispatched.
func (d *Dispatcher) UseBlueprint(b *Blueprint) error {
	for _, e := range b.entries {
		named := map[string]any{}
		for k, v := range b.defaultNamed {
			named[k] = v
		}
		for k, v := range e.named {
			named[k] = v
		}
		namedRules, err := d.factory.BuildAll(named)
		if err != nil {
			return fmt.Errorf("blueprint %s: %w", b.name, err)
		}

		chain := make([]rules.Rule, 0, len(b.defaultRules)+len(namedRules))
		chain = append(chain, b.defaultRules...)
		chain = append(chain, namedRules...)

		opts := append([]HandlerOption{WithRules(chain...)}, e.opts...)
		if err := d.Register(e.eventType, e.fn, opts...); err != nil {
			return fmt.Errorf("blueprint %s: %w", b.name, err)
		}
	}
	return nil
}
