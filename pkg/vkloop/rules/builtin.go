package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
)

// DefaultCommandPrefix marks command messages.
const DefaultCommandPrefix = "/"

// messageCommon extracts the shared message body from message events.
func messageCommon(ev event.Event) (event.MessageCommon, bool) {
	switch m := ev.(type) {
	case *event.MessageNew:
		return m.MessageCommon, true
	case *event.MessageEdit:
		return m.MessageCommon, true
	}
	return event.MessageCommon{}, false
}

// Text accepts message events whose normalized text equals want.
func Text(want string) Rule {
	return RuleFunc(func(_ context.Context, ev event.Event, _ event.Data) (Result, error) {
		m, ok := messageCommon(ev)
		if !ok || m.Text != want {
			return Reject(), nil
		}
		return Accept(), nil
	})
}

// Commands accepts messages whose first token is one of cmds behind
// the default prefix. See CommandsWithPrefix.
func Commands(cmds ...string) Rule {
	return CommandsWithPrefix(DefaultCommandPrefix, cmds...)
}

// CommandsWithPrefix accepts messages whose first whitespace token is
// prefix+cmd for one of cmds. On acceptance the data is enriched with
// "command" (the bare command) and "args" (the remaining tokens).
func CommandsWithPrefix(prefix string, cmds ...string) Rule {
	return RuleFunc(func(_ context.Context, ev event.Event, _ event.Data) (Result, error) {
		m, ok := messageCommon(ev)
		if !ok {
			return Reject(), nil
		}
		fields := strings.Fields(m.Text)
		if len(fields) == 0 {
			return Reject(), nil
		}
		for _, cmd := range cmds {
			if fields[0] == prefix+cmd {
				return AcceptWith(map[string]any{
					"command": cmd,
					"args":    fields[1:],
				}), nil
			}
		}
		return Reject(), nil
	})
}

// Payload accepts messages whose keyboard payload equals want. Both
// sides are compared as decoded JSON values, so the encoding of
// numbers and key order do not matter. Messages without a payload or
// with one that is not valid JSON are rejected.
func Payload(want map[string]any) Rule {
	return RuleFunc(func(_ context.Context, ev event.Event, _ event.Data) (Result, error) {
		m, ok := messageCommon(ev)
		if !ok || m.Payload == "" {
			return Reject(), nil
		}
		var got any
		if err := json.Unmarshal([]byte(m.Payload), &got); err != nil {
			return Reject(), nil
		}
		norm, err := normalizeJSON(want)
		if err != nil {
			return Reject(), fmt.Errorf("encode wanted payload: %w", err)
		}
		if !reflect.DeepEqual(got, norm) {
			return Reject(), nil
		}
		return Accept(), nil
	})
}

// normalizeJSON round-trips v through JSON so it compares cleanly
// against decoded server values.
func normalizeJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChatAction accepts chat service messages (invites, title changes and
// the like) whose action matches.
func ChatAction(action string) Rule {
	return RuleFunc(func(_ context.Context, ev event.Event, _ event.Data) (Result, error) {
		m, ok := ev.(*event.MessageNew)
		if !ok || m.Action != action {
			return Reject(), nil
		}
		return Accept(), nil
	})
}

// DataCheck accepts events whose handler data already holds every key
// in want with an equal value. Useful behind middlewares and earlier
// rules that enrich the data.
func DataCheck(want map[string]any) Rule {
	return RuleFunc(func(_ context.Context, _ event.Event, data event.Data) (Result, error) {
		for k, v := range want {
			got, ok := data.Value(k)
			if !ok || !reflect.DeepEqual(got, v) {
				return Reject(), nil
			}
		}
		return Accept(), nil
	})
}

// WithFlags accepts new messages carrying every flag in want.
func WithFlags(want event.MessageFlags) Rule {
	return RuleFunc(func(_ context.Context, ev event.Event, _ event.Data) (Result, error) {
		m, ok := ev.(*event.MessageNew)
		if !ok || m.Flags&want != want {
			return Reject(), nil
		}
		return Accept(), nil
	})
}

// FromChat accepts message events sent in group chats.
func FromChat() Rule {
	return peerKindRule(event.PeerChat)
}

// FromUser accepts message events sent in user dialogs.
func FromUser() Rule {
	return peerKindRule(event.PeerUser)
}

func peerKindRule(kind event.PeerKind) Rule {
	return RuleFunc(func(_ context.Context, ev event.Event, _ event.Data) (Result, error) {
		m, ok := messageCommon(ev)
		if !ok || m.Peer.Kind != kind {
			return Reject(), nil
		}
		return Accept(), nil
	})
}
