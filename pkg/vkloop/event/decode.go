package event

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Update is one raw positional update as delivered in the long-poll
// response's "updates" array. Element 0 is the event-type code.
type Update []json.RawMessage

// Message text arrives HTML-escaped; line breaks are <br> and are not
// escaped themselves.
var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&amp;", "&",
)

func normalizeText(s string) string {
	return entityReplacer.Replace(strings.ReplaceAll(s, "<br>", "\n"))
}

// Decode converts one raw update into its typed variant. It never
// fails: malformed elements decode to zero values, short arrays leave
// trailing fields unset, unknown codes produce *Unknown.
func Decode(u Update) Event {
	if len(u) == 0 {
		return &Unknown{Raw: u}
	}
	code := intAt(u, 0)

	switch Type(code) {
	case TypeMessageFlagsReplace:
		return &MessageFlagsReplace{
			MessageID:     intAt(u, 1),
			Flags:         MessageFlags(intAt(u, 2)),
			MessageCommon: decodeMessageCommon(u),
		}
	case TypeMessageFlagsSet:
		return &MessageFlagsSet{
			MessageID:     intAt(u, 1),
			Mask:          MessageFlags(intAt(u, 2)),
			MessageCommon: decodeMessageCommon(u),
		}
	case TypeMessageFlagsReset:
		return &MessageFlagsReset{
			MessageID:     intAt(u, 1),
			Mask:          MessageFlags(intAt(u, 2)),
			MessageCommon: decodeMessageCommon(u),
		}
	case TypeMessageNew:
		return decodeMessageNew(u)
	case TypeMessageEdit:
		ev := &MessageEdit{
			MessageID:     intAt(u, 1),
			Mask:          MessageFlags(intAt(u, 2)),
			MessageCommon: decodeMessageCommon(u),
		}
		ev.Text = normalizeText(ev.Text)
		return ev
	case TypeReadIncoming:
		return &ReadIncoming{
			PeerID:  intAt(u, 1),
			Peer:    SplitPeer(intAt(u, 1)),
			LocalID: intAt(u, 2),
		}
	case TypeReadOutgoing:
		return &ReadOutgoing{
			PeerID:  intAt(u, 1),
			Peer:    SplitPeer(intAt(u, 1)),
			LocalID: intAt(u, 2),
		}
	case TypeUserOnline:
		extra := intAt(u, 2)
		return &UserOnline{
			UserID:    abs(intAt(u, 1)),
			Extra:     extra,
			Platform:  platformFromExtra(extra),
			Timestamp: intAt(u, 3),
		}
	case TypeUserOffline:
		flags := intAt(u, 2)
		return &UserOffline{
			UserID:    abs(intAt(u, 1)),
			Flags:     flags,
			Reason:    OfflineKind(flags),
			Timestamp: intAt(u, 3),
		}
	case TypePeerFlagsReset:
		return &PeerFlagsReset{
			PeerID: intAt(u, 1),
			Peer:   SplitPeer(intAt(u, 1)),
			Mask:   PeerFlags(intAt(u, 2)),
		}
	case TypePeerFlagsReplace:
		return &PeerFlagsReplace{
			PeerID: intAt(u, 1),
			Peer:   SplitPeer(intAt(u, 1)),
			Flags:  PeerFlags(intAt(u, 2)),
		}
	case TypePeerFlagsSet:
		return &PeerFlagsSet{
			PeerID: intAt(u, 1),
			Peer:   SplitPeer(intAt(u, 1)),
			Mask:   PeerFlags(intAt(u, 2)),
		}
	case TypePeerDeleteAll:
		return &PeerDeleteAll{
			PeerID:  intAt(u, 1),
			Peer:    SplitPeer(intAt(u, 1)),
			LocalID: intAt(u, 2),
		}
	case TypePeerRestoreAll:
		return &PeerRestoreAll{
			PeerID:  intAt(u, 1),
			Peer:    SplitPeer(intAt(u, 1)),
			LocalID: intAt(u, 2),
		}
	case TypeChatEdit:
		return &ChatEdit{
			ChatID: intAt(u, 1),
			Self:   intAt(u, 2) != 0,
		}
	case TypeChatUpdate:
		return decodeChatUpdate(u)
	case TypeUserTyping:
		return &UserTyping{
			UserID: intAt(u, 1),
			Flags:  intAt(u, 2),
		}
	case TypeUserTypingInChat:
		return &UserTypingInChat{
			UserID: intAt(u, 1),
			ChatID: intAt(u, 2),
		}
	case TypeUserRecordingVoice:
		return &UserRecordingVoice{
			PeerID:    intAt(u, 1),
			Peer:      SplitPeer(intAt(u, 1)),
			UserID:    intOrFirstAt(u, 2),
			Flags:     intAt(u, 3),
			Timestamp: intAt(u, 4),
		}
	case TypeUserCall:
		return &UserCall{
			UserID: intAt(u, 1),
			CallID: intAt(u, 2),
		}
	case TypeCounterUpdate:
		return &CounterUpdate{
			Count: intAt(u, 1),
		}
	case TypeNotificationSettings:
		return decodeNotificationSettings(u)
	default:
		return &Unknown{Code: code, Raw: u}
	}
}

func decodeMessageNew(u Update) *MessageNew {
	ev := &MessageNew{
		MessageID:     intAt(u, 1),
		Flags:         MessageFlags(intAt(u, 2)),
		MessageCommon: decodeMessageCommon(u),
	}
	ev.Text = normalizeText(ev.Text)
	if ev.Flags.Has(FlagOutbox) {
		ev.FromMe = true
	} else {
		ev.ToMe = true
	}
	return ev
}

// decodeMessageCommon reads the shared tail of codes 1-5:
// [_, _, _, peer_id, timestamp, text, extra, attachments, random_id].
func decodeMessageCommon(u Update) MessageCommon {
	m := MessageCommon{
		PeerID:      intAt(u, 3),
		Timestamp:   intAt(u, 4),
		Text:        strAt(u, 5),
		Extra:       mapAt(u, 6),
		Attachments: strMapAt(u, 7),
		RandomID:    intAt(u, 8),
	}
	m.Peer = SplitPeer(m.PeerID)

	switch m.Peer.Kind {
	case PeerUser:
		m.UserID = m.PeerID
	case PeerChat:
		// In chats the sender arrives in the extra values.
		if from, ok := m.Extra["from"]; ok {
			m.UserID = anyToInt64(from)
		}
	}

	if p, ok := m.Extra["payload"].(string); ok {
		m.Payload = p
	}
	m.Action = m.Attachments["source_act"]
	if mid := m.Attachments["source_mid"]; mid != "" {
		m.ActionMemberID, _ = strconv.ParseInt(mid, 10, 64)
	}
	return m
}

func decodeChatUpdate(u Update) *ChatUpdate {
	ev := &ChatUpdate{
		ChatEvent: ChatEventKind(intAt(u, 1)),
		PeerID:    intAt(u, 2),
		Peer:      SplitPeer(intAt(u, 2)),
		Info:      anyAt(u, 3),
	}
	switch ev.ChatEvent {
	case ChatAdminAdded:
		ev.AdminID = anyToInt64(ev.Info)
	case ChatMessagePinned:
		ev.ConversationMessageID = anyToInt64(ev.Info)
	case ChatUserJoined, ChatUserLeft, ChatUserKicked, ChatAdminRemoved:
		ev.UserID = anyToInt64(ev.Info)
	}
	return ev
}

func decodeNotificationSettings(u Update) *NotificationSettings {
	ev := &NotificationSettings{
		Values: mapAt(u, 1),
	}
	ev.PeerID = anyToInt64(ev.Values["peer_id"])
	ev.Sound = anyToInt64(ev.Values["sound"])
	ev.DisabledUntil = anyToInt64(ev.Values["disabled_until"])
	ev.Peer = SplitPeer(ev.PeerID)
	return ev
}

// intAt reads the integer at position i, tolerating float and numeric
// string encodings. Absent or non-numeric elements read as 0.
func intAt(u Update, i int) int64 {
	if i >= len(u) {
		return 0
	}
	var n int64
	if err := json.Unmarshal(u[i], &n); err == nil {
		return n
	}
	var f float64
	if err := json.Unmarshal(u[i], &f); err == nil {
		return int64(f)
	}
	var s string
	if err := json.Unmarshal(u[i], &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// intOrFirstAt is intAt, additionally accepting a one-element array as
// newer servers deliver user IDs for voice recording events.
func intOrFirstAt(u Update, i int) int64 {
	if n := intAt(u, i); n != 0 {
		return n
	}
	if i >= len(u) {
		return 0
	}
	var list []int64
	if err := json.Unmarshal(u[i], &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return 0
}

func strAt(u Update, i int) string {
	if i >= len(u) {
		return ""
	}
	var s string
	if err := json.Unmarshal(u[i], &s); err == nil {
		return s
	}
	return ""
}

// mapAt reads the object at position i, or nil when the element is
// absent or not an object.
func mapAt(u Update, i int) map[string]any {
	if i >= len(u) {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(u[i], &m); err == nil {
		return m
	}
	return nil
}

// strMapAt reads an object of scalars as strings, the shape of the
// attachments element. Nested values are dropped.
func strMapAt(u Update, i int) map[string]string {
	raw := mapAt(u, i)
	if raw == nil {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	return out
}

func anyAt(u Update, i int) any {
	if i >= len(u) {
		return nil
	}
	var v any
	if err := json.Unmarshal(u[i], &v); err == nil {
		return v
	}
	return nil
}

func anyToInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
