package event_test

import (
	"encoding/json"
	"testing"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
)

func upd(t *testing.T, s string) event.Update {
	t.Helper()
	var u event.Update
	if err := json.Unmarshal([]byte(s), &u); err != nil {
		t.Fatalf("bad update literal %q: %v", s, err)
	}
	return u
}

func TestDecodeMessageNew(t *testing.T) {
	ev, ok := event.Decode(upd(t, `[4, 100, 2, 555, 1600000000, "A&lt;B", {}, 111]`)).(*event.MessageNew)
	if !ok {
		t.Fatal("expected *MessageNew")
	}

	if ev.MessageID != 100 {
		t.Errorf("expected message id 100, got %d", ev.MessageID)
	}
	if ev.Text != "A<B" {
		t.Errorf("expected unescaped text %q, got %q", "A<B", ev.Text)
	}
	if !ev.FromMe || ev.ToMe {
		t.Errorf("expected outgoing message, got from_me=%v to_me=%v", ev.FromMe, ev.ToMe)
	}
	if ev.PeerID != 555 {
		t.Errorf("expected peer id 555, got %d", ev.PeerID)
	}
	if ev.Peer.Kind != event.PeerUser || ev.Peer.ID != 555 {
		t.Errorf("expected user peer 555, got %v %d", ev.Peer.Kind, ev.Peer.ID)
	}
	if ev.UserID != 555 {
		t.Errorf("expected sender 555, got %d", ev.UserID)
	}
	if ev.Timestamp != 1600000000 {
		t.Errorf("expected timestamp 1600000000, got %d", ev.Timestamp)
	}
	// The attachments element is not an object here; it must be
	// tolerated, not decoded.
	if ev.Attachments != nil {
		t.Errorf("expected nil attachments, got %v", ev.Attachments)
	}
	if ev.RandomID != 0 {
		t.Errorf("expected unset random id, got %d", ev.RandomID)
	}
}

func TestDecodeIncomingDirection(t *testing.T) {
	ev := event.Decode(upd(t, `[4, 7, 1, 42, 1600000000, "hi"]`)).(*event.MessageNew)
	if ev.FromMe {
		t.Error("expected incoming message")
	}
	if !ev.ToMe {
		t.Error("expected to_me to be set")
	}
	if !ev.Flags.Has(event.FlagUnread) {
		t.Error("expected unread flag")
	}
}

func TestDecodeChatMessageSender(t *testing.T) {
	ev := event.Decode(upd(t, `[4, 9, 532481, 2000000005, 1600000000, "hey", {"from": "259", "title": "room"}, {}, 7]`)).(*event.MessageNew)

	if ev.Peer.Kind != event.PeerChat || ev.Peer.ID != 5 {
		t.Errorf("expected chat peer 5, got %v %d", ev.Peer.Kind, ev.Peer.ID)
	}
	if ev.UserID != 259 {
		t.Errorf("expected sender from extra values, got %d", ev.UserID)
	}
	if ev.Extra["title"] != "room" {
		t.Errorf("expected extra values retained, got %v", ev.Extra)
	}
	if ev.RandomID != 7 {
		t.Errorf("expected random id 7, got %d", ev.RandomID)
	}
}

func TestDecodeTextNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"one<br>two", "one\ntwo"},
		{"&lt;b&gt;", "<b>"},
		{"say &quot;hi&quot;", `say "hi"`},
		{"a &amp; b", "a & b"},
		{"&amp;lt;", "&lt;"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		raw, _ := json.Marshal(tt.in)
		u := upd(t, `[4, 1, 1, 42, 0]`)
		u = append(u, raw)
		ev := event.Decode(u).(*event.MessageNew)
		if ev.Text != tt.want {
			t.Errorf("decode text %q: expected %q, got %q", tt.in, tt.want, ev.Text)
		}
	}
}

func TestDecodeEscapedTextKeptOnFlagEvents(t *testing.T) {
	// Codes 1-3 carry the message tail too, but their text is not
	// message text being presented to anyone; it stays as received.
	ev := event.Decode(upd(t, `[2, 1, 128, 42, 0, "A&lt;B"]`)).(*event.MessageFlagsSet)
	if ev.Text != "A&lt;B" {
		t.Errorf("expected raw text, got %q", ev.Text)
	}
	if ev.Mask != event.FlagDeleted {
		t.Errorf("expected deleted mask, got %v", ev.Mask)
	}
}

func TestDecodeMessageEdit(t *testing.T) {
	ev := event.Decode(upd(t, `[5, 77, 0, 42, 1600000001, "fixed&gt;"]`)).(*event.MessageEdit)
	if ev.MessageID != 77 {
		t.Errorf("expected message id 77, got %d", ev.MessageID)
	}
	if ev.Text != "fixed>" {
		t.Errorf("expected normalized text, got %q", ev.Text)
	}
}

func TestDecodeServiceAction(t *testing.T) {
	ev := event.Decode(upd(t, `[4, 3, 532497, 2000000001, 1600000000, "", {"from": "7"}, {"source_act": "chat_invite_user", "source_mid": "42"}]`)).(*event.MessageNew)
	if ev.Action != "chat_invite_user" {
		t.Errorf("expected service action, got %q", ev.Action)
	}
	if ev.ActionMemberID != 42 {
		t.Errorf("expected action member 42, got %d", ev.ActionMemberID)
	}
}

func TestDecodePayloadPromotion(t *testing.T) {
	ev := event.Decode(upd(t, `[4, 3, 1, 42, 1600000000, "", {"payload": "{\"hello\":\"world\"}"}]`)).(*event.MessageNew)
	if ev.Payload != `{"hello":"world"}` {
		t.Errorf("expected promoted payload, got %q", ev.Payload)
	}
}

func TestDecodeShortArrays(t *testing.T) {
	// No prefix of any schema may panic or error; trailing fields stay
	// at zero values.
	updates := []string{
		`[]`,
		`[4]`,
		`[4, 1]`,
		`[4, 1, 2]`,
		`[4, 1, 2, -3]`,
		`[8]`,
		`[9, 42]`,
		`[52]`,
		`[52, 3]`,
		`[114]`,
		`[80]`,
		`[64, 1]`,
	}
	for _, s := range updates {
		ev := event.Decode(upd(t, s))
		if ev == nil {
			t.Errorf("decode %s: expected an event, got nil", s)
		}
	}

	short := event.Decode(upd(t, `[4, 9]`)).(*event.MessageNew)
	if short.MessageID != 9 || short.PeerID != 0 || short.Text != "" {
		t.Errorf("expected zero trailing fields, got %+v", short)
	}
}

func TestDecodeMalformedElements(t *testing.T) {
	// Elements of the wrong JSON type decode to zero values.
	ev := event.Decode(upd(t, `[4, "nan", {}, [1], "0", 17, "str", 3, {}]`)).(*event.MessageNew)
	if ev.MessageID != 0 {
		t.Errorf("expected zero message id, got %d", ev.MessageID)
	}
	if ev.PeerID != 0 {
		t.Errorf("expected zero peer id, got %d", ev.PeerID)
	}
	if ev.Extra != nil {
		t.Errorf("expected nil extra, got %v", ev.Extra)
	}
}

func TestDecodeUnknownCode(t *testing.T) {
	ev, ok := event.Decode(upd(t, `[39, 1, 2, 3]`)).(*event.Unknown)
	if !ok {
		t.Fatal("expected *Unknown")
	}
	if ev.Code != 39 {
		t.Errorf("expected code 39, got %d", ev.Code)
	}
	if len(ev.Raw) != 4 {
		t.Errorf("expected raw update retained, got %d elements", len(ev.Raw))
	}
	if got := ev.EventType().String(); got != "unknown(39)" {
		t.Errorf("expected unknown(39), got %q", got)
	}
}

func TestDecodeReadEvents(t *testing.T) {
	in := event.Decode(upd(t, `[6, 42, 1500]`)).(*event.ReadIncoming)
	if in.PeerID != 42 || in.LocalID != 1500 {
		t.Errorf("unexpected read incoming: %+v", in)
	}
	out := event.Decode(upd(t, `[7, -99, 1501]`)).(*event.ReadOutgoing)
	if out.Peer.Kind != event.PeerGroup || out.Peer.ID != 99 {
		t.Errorf("expected group peer 99, got %+v", out.Peer)
	}
}

func TestDecodeUserOnline(t *testing.T) {
	ev := event.Decode(upd(t, `[8, -259, 7, 1600000000]`)).(*event.UserOnline)
	if ev.UserID != 259 {
		t.Errorf("expected absolute user id, got %d", ev.UserID)
	}
	if ev.Platform != event.PlatformWeb {
		t.Errorf("expected web platform, got %v", ev.Platform)
	}
	if ev.Time().Unix() != 1600000000 {
		t.Errorf("unexpected time %v", ev.Time())
	}

	// Platform sits in the low byte of extra.
	masked := event.Decode(upd(t, `[8, -1, 260, 0]`)).(*event.UserOnline)
	if masked.Platform != event.PlatformAndroid {
		t.Errorf("expected android from extra&0xff, got %v", masked.Platform)
	}

	unknown := event.Decode(upd(t, `[8, -1, 200, 0]`)).(*event.UserOnline)
	if unknown.Platform != event.PlatformUnknown {
		t.Errorf("expected unknown platform, got %v", unknown.Platform)
	}
}

func TestDecodeUserOffline(t *testing.T) {
	ev := event.Decode(upd(t, `[9, -259, 1, 1600000000]`)).(*event.UserOffline)
	if ev.UserID != 259 {
		t.Errorf("expected absolute user id, got %d", ev.UserID)
	}
	if ev.Reason != event.OfflineAway {
		t.Errorf("expected away, got %v", ev.Reason)
	}
}

func TestDecodePeerFlagEvents(t *testing.T) {
	rep := event.Decode(upd(t, `[11, 42, 3]`)).(*event.PeerFlagsReplace)
	if !rep.Flags.Has(event.PeerFlagImportant) || !rep.Flags.Has(event.PeerFlagUnanswered) {
		t.Errorf("expected both peer flags, got %v", rep.Flags)
	}
	set := event.Decode(upd(t, `[12, 42, 2]`)).(*event.PeerFlagsSet)
	if set.Mask != event.PeerFlagUnanswered {
		t.Errorf("expected unanswered mask, got %v", set.Mask)
	}
}

func TestDecodeChatUpdatePromotions(t *testing.T) {
	admin := event.Decode(upd(t, `[52, 3, 2000000001, 77]`)).(*event.ChatUpdate)
	if admin.ChatEvent != event.ChatAdminAdded || admin.AdminID != 77 {
		t.Errorf("expected admin 77, got %+v", admin)
	}
	if admin.Peer.Kind != event.PeerChat || admin.Peer.ID != 1 {
		t.Errorf("expected chat peer 1, got %+v", admin.Peer)
	}

	pinned := event.Decode(upd(t, `[52, 5, 2000000001, 1234]`)).(*event.ChatUpdate)
	if pinned.ConversationMessageID != 1234 {
		t.Errorf("expected pinned message 1234, got %+v", pinned)
	}

	joined := event.Decode(upd(t, `[52, 6, 2000000001, 99]`)).(*event.ChatUpdate)
	if joined.UserID != 99 {
		t.Errorf("expected joined user 99, got %+v", joined)
	}

	title := event.Decode(upd(t, `[52, 1, 2000000001, {"title": "new"}]`)).(*event.ChatUpdate)
	if title.AdminID != 0 || title.UserID != 0 {
		t.Errorf("expected no promotion for title change, got %+v", title)
	}
	if _, ok := title.Info.(map[string]any); !ok {
		t.Errorf("expected info object retained, got %T", title.Info)
	}
}

func TestDecodeChatEdit(t *testing.T) {
	ev := event.Decode(upd(t, `[51, 12, 1]`)).(*event.ChatEdit)
	if ev.ChatID != 12 || !ev.Self {
		t.Errorf("unexpected chat edit: %+v", ev)
	}
}

func TestDecodeTypingAndCalls(t *testing.T) {
	typ := event.Decode(upd(t, `[61, 42, 1]`)).(*event.UserTyping)
	if typ.UserID != 42 {
		t.Errorf("unexpected typing event: %+v", typ)
	}
	chat := event.Decode(upd(t, `[62, 42, 5]`)).(*event.UserTypingInChat)
	if chat.ChatID != 5 {
		t.Errorf("unexpected chat typing event: %+v", chat)
	}
	call := event.Decode(upd(t, `[70, 42, 900]`)).(*event.UserCall)
	if call.CallID != 900 {
		t.Errorf("unexpected call event: %+v", call)
	}
	count := event.Decode(upd(t, `[80, 3]`)).(*event.CounterUpdate)
	if count.Count != 3 {
		t.Errorf("unexpected counter: %+v", count)
	}
}

func TestDecodeRecordingVoiceUserList(t *testing.T) {
	ev := event.Decode(upd(t, `[64, 2000000001, [77], 1, 1600000000]`)).(*event.UserRecordingVoice)
	if ev.UserID != 77 {
		t.Errorf("expected first user of list, got %d", ev.UserID)
	}

	scalar := event.Decode(upd(t, `[64, 42, 77, 1, 0]`)).(*event.UserRecordingVoice)
	if scalar.UserID != 77 {
		t.Errorf("expected scalar user id, got %d", scalar.UserID)
	}
}

func TestDecodeNotificationSettings(t *testing.T) {
	ev := event.Decode(upd(t, `[114, {"peer_id": 2000000003, "sound": 1, "disabled_until": -1}]`)).(*event.NotificationSettings)
	if ev.PeerID != 2000000003 {
		t.Errorf("expected peer from values, got %d", ev.PeerID)
	}
	if ev.Peer.Kind != event.PeerChat || ev.Peer.ID != 3 {
		t.Errorf("expected chat peer 3, got %+v", ev.Peer)
	}
	if ev.Sound != 1 || ev.DisabledUntil != -1 {
		t.Errorf("unexpected settings: %+v", ev)
	}
}

func TestDecodeNumericStringElements(t *testing.T) {
	// Servers occasionally deliver numbers as strings.
	ev := event.Decode(upd(t, `[4, "100", "2", "555", "1600000000", "x"]`)).(*event.MessageNew)
	if ev.MessageID != 100 || ev.PeerID != 555 || !ev.FromMe {
		t.Errorf("expected tolerant numeric decode, got %+v", ev)
	}
}
