// Package event decodes VK user long-poll updates into typed events.
//
// # Overview
//
// The long-poll server delivers each update as a compact positional JSON
// array: the first element is the event-type code, the remaining elements
// map onto a fixed per-type field schema. Decode turns one such array into
// a typed Event variant:
//
//	var u event.Update
//	_ = json.Unmarshal([]byte(`[4,12345,49,2000000001,1600000000,"hi",{"from":"259166248"},{},0]`), &u)
//
//	switch ev := event.Decode(u).(type) {
//	case *event.MessageNew:
//	    fmt.Println(ev.Peer.Kind, ev.UserID, ev.Text)
//	case *event.Unknown:
//	    fmt.Println("unhandled code", ev.Code)
//	}
//
// Decode is total: it never fails. Arrays shorter than the schema leave
// trailing fields at their zero values, elements of an unexpected JSON
// type decode to zero values, and unknown type codes produce *Unknown
// carrying the raw code and payload. The variant tag is the concrete Go
// type and cannot change after decoding.
//
// # Derived fields
//
// Everything the wire format encodes indirectly is computed once during
// Decode and stored on the variant:
//
//   - peer classification: negative peer IDs are groups, IDs above
//     ChatOffset are chats (offset-corrected), the rest are users
//   - message flag bitmasks expand to MessageFlags with Has/List
//   - outgoing messages set FromMe, incoming set ToMe
//   - message text arrives HTML-escaped with <br> line breaks and is
//     normalized to plain text
//   - the extra-values object is retained and its well-known keys
//     ("from", "payload") are promoted to typed fields
//   - service actions (chat_invite_user and friends) are promoted from
//     the attachments object
//
// # Data
//
// Data is the mutable per-event key-value bag the dispatcher threads
// through middleware, rules and the handler. Rules enrich it; the
// enrichment is visible to later rules and to the handler of the same
// event only.
package event
