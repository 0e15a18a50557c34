// Package keyboard builds the JSON payload for bot keyboards.
//
// A Keyboard collects text buttons row by row and serializes them into
// the wire shape the messages.send keyboard parameter expects. Builder
// methods chain; limit validation happens at JSON() time, not during
// construction.
package keyboard

import (
	"encoding/json"
	"fmt"
)

// ButtonColor selects the client-side button style.
type ButtonColor string

const (
	ColorPrimary   ButtonColor = "primary"
	ColorSecondary ButtonColor = "secondary"
	ColorNegative  ButtonColor = "negative"
	ColorPositive  ButtonColor = "positive"
)

// Wire limits. Inline keyboards render inside the message bubble and
// carry tighter caps than the regular reply keyboard.
const (
	maxRowButtons = 5

	maxRows    = 10
	maxButtons = 40

	maxInlineRows    = 6
	maxInlineButtons = 10

	maxPayloadBytes = 255
)

// Option configures a Keyboard at construction.
type Option func(*Keyboard)

// OneTime hides the keyboard after the first button press.
func OneTime() Option {
	return func(k *Keyboard) { k.oneTime = true }
}

// Inline attaches the keyboard to the message instead of the input
// field.
func Inline() Option {
	return func(k *Keyboard) { k.inline = true }
}

// ButtonOption configures a single button.
type ButtonOption func(*button)

// WithColor overrides the default primary color.
func WithColor(c ButtonColor) ButtonOption {
	return func(b *button) { b.color = c }
}

// WithPayload attaches an arbitrary JSON-marshalable value to the
// button. The client echoes it back in the message payload, where the
// payload rule can match it.
func WithPayload(v any) ButtonOption {
	return func(b *button) {
		b.payload = v
		b.hasPayload = true
	}
}

type button struct {
	label      string
	color      ButtonColor
	payload    any
	hasPayload bool
}

// Keyboard accumulates button rows. The zero value is not usable; use
// New.
type Keyboard struct {
	oneTime bool
	inline  bool
	rows    [][]button
}

// New returns an empty keyboard with one open row.
func New(opts ...Option) *Keyboard {
	k := &Keyboard{rows: [][]button{{}}}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// AddTextButton appends a text button to the current row.
// Returns the keyboard for method chaining.
//
// Panics if label is empty.
func (k *Keyboard) AddTextButton(label string, opts ...ButtonOption) *Keyboard {
	if label == "" {
		panic("keyboard: button label cannot be empty")
	}

	b := button{label: label, color: ColorPrimary}
	for _, opt := range opts {
		opt(&b)
	}

	last := len(k.rows) - 1
	k.rows[last] = append(k.rows[last], b)
	return k
}

// AddRow closes the current row and opens a new one.
// Returns the keyboard for method chaining.
func (k *Keyboard) AddRow() *Keyboard {
	k.rows = append(k.rows, []button{})
	return k
}

type wireAction struct {
	Type    string `json:"type"`
	Label   string `json:"label"`
	Payload string `json:"payload,omitempty"`
}

type wireButton struct {
	Action wireAction  `json:"action"`
	Color  ButtonColor `json:"color"`
}

type wireKeyboard struct {
	OneTime bool           `json:"one_time,omitempty"`
	Inline  bool           `json:"inline,omitempty"`
	Buttons [][]wireButton `json:"buttons"`
}

// JSON validates the accumulated rows against the wire limits and
// returns the serialized keyboard. Empty rows are dropped.
func (k *Keyboard) JSON() (string, error) {
	rowLimit, total := maxRows, maxButtons
	if k.inline {
		rowLimit, total = maxInlineRows, maxInlineButtons
	}

	wire := wireKeyboard{
		OneTime: k.oneTime,
		Inline:  k.inline,
		Buttons: [][]wireButton{},
	}

	count := 0
	for i, row := range k.rows {
		if len(row) == 0 {
			continue
		}
		if len(row) > maxRowButtons {
			return "", fmt.Errorf("row %d has %d buttons, limit is %d", i, len(row), maxRowButtons)
		}

		wireRow := make([]wireButton, 0, len(row))
		for _, b := range row {
			wb := wireButton{
				Action: wireAction{Type: "text", Label: b.label},
				Color:  b.color,
			}
			if b.hasPayload {
				payload, err := json.Marshal(b.payload)
				if err != nil {
					return "", fmt.Errorf("marshal payload for button %q: %w", b.label, err)
				}
				if len(payload) > maxPayloadBytes {
					return "", fmt.Errorf("payload for button %q is %d bytes, limit is %d", b.label, len(payload), maxPayloadBytes)
				}
				wb.Action.Payload = string(payload)
			}
			wireRow = append(wireRow, wb)
		}

		wire.Buttons = append(wire.Buttons, wireRow)
		count += len(row)
	}

	if len(wire.Buttons) > rowLimit {
		return "", fmt.Errorf("keyboard has %d rows, limit is %d", len(wire.Buttons), rowLimit)
	}
	if count > total {
		return "", fmt.Errorf("keyboard has %d buttons, limit is %d", count, total)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("marshal keyboard: %w", err)
	}
	return string(data), nil
}

// Empty returns the payload that clears a previously shown keyboard.
func Empty() string {
	return `{"one_time":true,"buttons":[]}`
}
