package rules

import (
	"fmt"
	"sort"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
)

// Constructor builds a rule from its configuration value, validating
// it eagerly so misconfiguration surfaces at registration time rather
// than on the first matching event.
type Constructor func(option any) (Rule, error)

// Factory builds rules from configuration by registered name.
type Factory struct {
	ctors map[string]Constructor
}

// NewFactory returns a factory with the built-in rules registered
// under their canonical names: text, commands, payload, chat_action
// and data_check.
func NewFactory() *Factory {
	f := &Factory{ctors: map[string]Constructor{}}
	f.Register("text", textConstructor)
	f.Register("commands", commandsConstructor)
	f.Register("payload", payloadConstructor)
	f.Register("chat_action", chatActionConstructor)
	f.Register("data_check", dataCheckConstructor)
	return f
}

// Register adds a named constructor, replacing any previous one under
// the same name.
func (f *Factory) Register(name string, ctor Constructor) {
	f.ctors[name] = ctor
}

// Build constructs the rule registered under name from option.
func (f *Factory) Build(name string, option any) (Rule, error) {
	ctor, ok := f.ctors[name]
	if !ok {
		return nil, fmt.Errorf("unknown rule %q", name)
	}
	rule, err := ctor(option)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", name, err)
	}
	return rule, nil
}

// BuildAll constructs one rule per entry of named, in name order so
// enrichment is deterministic.
func (f *Factory) BuildAll(named map[string]any) ([]Rule, error) {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)

	rs := make([]Rule, 0, len(names))
	for _, name := range names {
		rule, err := f.Build(name, named[name])
		if err != nil {
			return nil, err
		}
		rs = append(rs, rule)
	}
	return rs, nil
}

func textConstructor(option any) (Rule, error) {
	s, ok := option.(string)
	if !ok {
		return nil, fmt.Errorf("want a string, got %T", option)
	}
	return Text(s), nil
}

func commandsConstructor(option any) (Rule, error) {
	cmds, ok := stringsOption(option)
	if !ok || len(cmds) == 0 {
		return nil, fmt.Errorf("want a string or string list, got %T", option)
	}
	return Commands(cmds...), nil
}

func payloadConstructor(option any) (Rule, error) {
	m, ok := mapOption(option)
	if !ok {
		return nil, fmt.Errorf("want an object, got %T", option)
	}
	return Payload(m), nil
}

func chatActionConstructor(option any) (Rule, error) {
	s, ok := option.(string)
	if !ok {
		return nil, fmt.Errorf("want a string, got %T", option)
	}
	return ChatAction(s), nil
}

func dataCheckConstructor(option any) (Rule, error) {
	m, ok := mapOption(option)
	if !ok {
		return nil, fmt.Errorf("want an object, got %T", option)
	}
	return DataCheck(m), nil
}

func stringsOption(option any) ([]string, bool) {
	switch v := option.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func mapOption(option any) (map[string]any, bool) {
	switch v := option.(type) {
	case map[string]any:
		return v, true
	case event.Data:
		return v, true
	}
	return nil, false
}
