package vkloop

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
	"github.com/mkorobkov/vkloop/pkg/vkloop/rules"
)

// TestBlueprint_InstallsHandlers tests deferred registration.
func TestBlueprint_InstallsHandlers(t *testing.T) {
	var messages, typing atomic.Int64

	bp := NewBlueprint("probe")
	bp.HandleMessage(func(context.Context, event.Event, event.Data) error {
		messages.Add(1)
		return nil
	})
	bp.Handle(event.TypeUserTyping, func(context.Context, event.Event, event.Data) error {
		typing.Add(1)
		return nil
	})

	d := New(newFakePoller())
	require.NoError(t, d.UseBlueprint(bp))
	assert.Equal(t, "probe", bp.Name())

	d.processUpdate(context.Background(), msgUpdate(1, 1, 5, "hi"))
	d.processUpdate(context.Background(), typingUpdate(9))

	assert.Equal(t, int64(1), messages.Load())
	assert.Equal(t, int64(1), typing.Load())
}

// TestBlueprint_DefaultRules tests that blueprint defaults gate every
// handler.
func TestBlueprint_DefaultRules(t *testing.T) {
	var admin atomic.Int64

	bp := NewBlueprint("admin",
		WithDefaultRules(rules.DataCheck(map[string]any{"role": "admin"})),
	)
	bp.HandleMessage(func(context.Context, event.Event, event.Data) error {
		admin.Add(1)
		return nil
	})

	grant := &funcMiddleware{
		pre: func(_ context.Context, _ event.Event, data event.Data) (Outcome, error) {
			data["role"] = "user"
			return Continue, nil
		},
	}

	d := New(newFakePoller())
	require.NoError(t, d.RegisterMiddleware(grant))
	require.NoError(t, d.UseBlueprint(bp))

	d.processUpdate(context.Background(), msgUpdate(1, 1, 5, "hi"))
	assert.Equal(t, int64(0), admin.Load(), "default rules must gate blueprint handlers")
}

// TestBlueprint_NamedDefaults tests merged named rules with handler
// overrides winning.
func TestBlueprint_NamedDefaults(t *testing.T) {
	var start, stop atomic.Int64

	bp := NewBlueprint("cmds", WithDefaultNamed(map[string]any{"commands": "start"}))
	bp.Handle(event.TypeMessageNew, func(context.Context, event.Event, event.Data) error {
		start.Add(1)
		return nil
	})
	bp.HandleNamed(event.TypeMessageNew, func(context.Context, event.Event, event.Data) error {
		stop.Add(1)
		return nil
	}, map[string]any{"commands": "stop"})

	d := New(newFakePoller())
	require.NoError(t, d.UseBlueprint(bp))

	d.processUpdate(context.Background(), msgUpdate(1, 1, 5, "/start"))
	d.processUpdate(context.Background(), msgUpdate(2, 1, 5, "/stop"))

	assert.Equal(t, int64(1), start.Load(), "default named rule applies when not overridden")
	assert.Equal(t, int64(1), stop.Load(), "handler named rule overrides the default")
}

// TestBlueprint_FactoryError tests early failure on bad named rules.
func TestBlueprint_FactoryError(t *testing.T) {
	bp := NewBlueprint("broken")
	bp.HandleNamed(event.TypeMessageNew, noopHandler, map[string]any{"no_such_rule": true})

	d := New(newFakePoller())
	err := d.UseBlueprint(bp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blueprint broken")
}
