package event

import (
	"fmt"
	"time"
)

// Type is a wire event-type code as sent by the long-poll server.
type Type int

// Event-type codes. See https://vk.com/dev/using_longpoll.
const (
	TypeMessageFlagsReplace  Type = 1
	TypeMessageFlagsSet      Type = 2
	TypeMessageFlagsReset    Type = 3
	TypeMessageNew           Type = 4
	TypeMessageEdit          Type = 5
	TypeReadIncoming         Type = 6
	TypeReadOutgoing         Type = 7
	TypeUserOnline           Type = 8
	TypeUserOffline          Type = 9
	TypePeerFlagsReset       Type = 10
	TypePeerFlagsReplace     Type = 11
	TypePeerFlagsSet         Type = 12
	TypePeerDeleteAll        Type = 13
	TypePeerRestoreAll       Type = 14
	TypeChatEdit             Type = 51
	TypeChatUpdate           Type = 52
	TypeUserTyping           Type = 61
	TypeUserTypingInChat     Type = 62
	TypeUserRecordingVoice   Type = 64
	TypeUserCall             Type = 70
	TypeCounterUpdate        Type = 80
	TypeNotificationSettings Type = 114
)

var typeNames = map[Type]string{
	TypeMessageFlagsReplace:  "message_flags_replace",
	TypeMessageFlagsSet:      "message_flags_set",
	TypeMessageFlagsReset:    "message_flags_reset",
	TypeMessageNew:           "message_new",
	TypeMessageEdit:          "message_edit",
	TypeReadIncoming:         "read_incoming",
	TypeReadOutgoing:         "read_outgoing",
	TypeUserOnline:           "user_online",
	TypeUserOffline:          "user_offline",
	TypePeerFlagsReset:       "peer_flags_reset",
	TypePeerFlagsReplace:     "peer_flags_replace",
	TypePeerFlagsSet:         "peer_flags_set",
	TypePeerDeleteAll:        "peer_delete_all",
	TypePeerRestoreAll:       "peer_restore_all",
	TypeChatEdit:             "chat_edit",
	TypeChatUpdate:           "chat_update",
	TypeUserTyping:           "user_typing",
	TypeUserTypingInChat:     "user_typing_in_chat",
	TypeUserRecordingVoice:   "user_recording_voice",
	TypeUserCall:             "user_call",
	TypeCounterUpdate:        "counter_update",
	TypeNotificationSettings: "notification_settings",
}

// String returns a stable lowercase name for logs and metrics.
// Codes without a registered variant render as "unknown(<code>)".
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// Event is the decoded form of one long-poll update.
// The concrete type is the variant tag; it is fixed at decode time.
type Event interface {
	EventType() Type
}

// MessageCommon is the shared tail of the message-level variants
// (codes 1-5): everything after the message ID and the flags/mask word.
type MessageCommon struct {
	// PeerID is the raw wire peer identifier; Peer is its
	// classification into user, chat or group space.
	PeerID int64
	Peer   Peer

	// UserID is the sender: the peer itself for user dialogs, the
	// "from" extra value for chat messages, zero otherwise.
	UserID int64

	Timestamp int64

	// Text is plain text: <br> normalized to newlines, HTML entities
	// unescaped. Codes 1-3 carry it as received.
	Text string

	// Extra holds the extra-values object as delivered. Payload is the
	// promoted "payload" value attached by bot keyboards.
	Extra   map[string]any
	Payload string

	// Attachments is the raw attachments object. Action and
	// ActionMemberID are promoted from its source_act/source_mid keys
	// for chat service messages.
	Attachments    map[string]string
	Action         string
	ActionMemberID int64

	RandomID int64
}

// Time returns the event timestamp as a time.Time (zero if unset).
func (m MessageCommon) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(m.Timestamp, 0).UTC()
}

// MessageNew is a new incoming or outgoing message (code 4).
type MessageNew struct {
	MessageID int64
	Flags     MessageFlags
	MessageCommon

	// Direction, derived from the OUTBOX flag.
	FromMe bool
	ToMe   bool
}

// EventType implements Event.
func (*MessageNew) EventType() Type { return TypeMessageNew }

// MessageEdit is an edit of an existing message (code 5).
type MessageEdit struct {
	MessageID int64
	Mask      MessageFlags
	MessageCommon
}

// EventType implements Event.
func (*MessageEdit) EventType() Type { return TypeMessageEdit }

// MessageFlagsReplace reports a full flag replacement (code 1).
type MessageFlagsReplace struct {
	MessageID int64
	Flags     MessageFlags
	MessageCommon
}

// EventType implements Event.
func (*MessageFlagsReplace) EventType() Type { return TypeMessageFlagsReplace }

// MessageFlagsSet reports flag bits being set (code 2).
type MessageFlagsSet struct {
	MessageID int64
	Mask      MessageFlags
	MessageCommon
}

// EventType implements Event.
func (*MessageFlagsSet) EventType() Type { return TypeMessageFlagsSet }

// MessageFlagsReset reports flag bits being cleared (code 3).
type MessageFlagsReset struct {
	MessageID int64
	Mask      MessageFlags
	MessageCommon
}

// EventType implements Event.
func (*MessageFlagsReset) EventType() Type { return TypeMessageFlagsReset }

// ReadIncoming marks all incoming messages in a peer up to LocalID as
// read (code 6).
type ReadIncoming struct {
	PeerID  int64
	Peer    Peer
	LocalID int64
}

// EventType implements Event.
func (*ReadIncoming) EventType() Type { return TypeReadIncoming }

// ReadOutgoing marks all outgoing messages in a peer up to LocalID as
// read (code 7).
type ReadOutgoing struct {
	PeerID  int64
	Peer    Peer
	LocalID int64
}

// EventType implements Event.
func (*ReadOutgoing) EventType() Type { return TypeReadOutgoing }

// UserOnline reports a friend coming online (code 8).
type UserOnline struct {
	UserID    int64
	Extra     int64
	Platform  Platform
	Timestamp int64
}

// EventType implements Event.
func (*UserOnline) EventType() Type { return TypeUserOnline }

// Time returns the last-seen timestamp (zero if unset).
func (e *UserOnline) Time() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(e.Timestamp, 0).UTC()
}

// UserOffline reports a friend going offline (code 9).
type UserOffline struct {
	UserID    int64
	Flags     int64
	Reason    OfflineKind
	Timestamp int64
}

// EventType implements Event.
func (*UserOffline) EventType() Type { return TypeUserOffline }

// Time returns the last-seen timestamp (zero if unset).
func (e *UserOffline) Time() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(e.Timestamp, 0).UTC()
}

// PeerFlagsReset reports dialog flag bits being cleared (code 10).
type PeerFlagsReset struct {
	PeerID int64
	Peer   Peer
	Mask   PeerFlags
}

// EventType implements Event.
func (*PeerFlagsReset) EventType() Type { return TypePeerFlagsReset }

// PeerFlagsReplace reports a full dialog flag replacement (code 11).
type PeerFlagsReplace struct {
	PeerID int64
	Peer   Peer
	Flags  PeerFlags
}

// EventType implements Event.
func (*PeerFlagsReplace) EventType() Type { return TypePeerFlagsReplace }

// PeerFlagsSet reports dialog flag bits being set (code 12).
type PeerFlagsSet struct {
	PeerID int64
	Peer   Peer
	Mask   PeerFlags
}

// EventType implements Event.
func (*PeerFlagsSet) EventType() Type { return TypePeerFlagsSet }

// PeerDeleteAll reports deletion of all messages in a dialog up to
// LocalID (code 13).
type PeerDeleteAll struct {
	PeerID  int64
	Peer    Peer
	LocalID int64
}

// EventType implements Event.
func (*PeerDeleteAll) EventType() Type { return TypePeerDeleteAll }

// PeerRestoreAll reports restoration of recently deleted messages in a
// dialog up to LocalID (code 14).
type PeerRestoreAll struct {
	PeerID  int64
	Peer    Peer
	LocalID int64
}

// EventType implements Event.
func (*PeerRestoreAll) EventType() Type { return TypePeerRestoreAll }

// ChatEdit reports a change to a chat's composition or topic (code 51).
// Self is true when the current user made the change.
type ChatEdit struct {
	ChatID int64
	Self   bool
}

// EventType implements Event.
func (*ChatEdit) EventType() Type { return TypeChatEdit }

// ChatUpdate reports a change to chat info (code 52). The scalar info
// value is promoted to AdminID, ConversationMessageID or UserID
// depending on the change kind; Info keeps the value as received.
type ChatUpdate struct {
	ChatEvent ChatEventKind
	PeerID    int64
	Peer      Peer
	Info      any

	AdminID               int64
	ConversationMessageID int64
	UserID                int64
}

// EventType implements Event.
func (*ChatUpdate) EventType() Type { return TypeChatUpdate }

// UserTyping reports typing in a private dialog (code 61).
type UserTyping struct {
	UserID int64
	Flags  int64
}

// EventType implements Event.
func (*UserTyping) EventType() Type { return TypeUserTyping }

// UserTypingInChat reports typing in a chat (code 62).
type UserTypingInChat struct {
	UserID int64
	ChatID int64
}

// EventType implements Event.
func (*UserTypingInChat) EventType() Type { return TypeUserTypingInChat }

// UserRecordingVoice reports a voice message being recorded (code 64).
type UserRecordingVoice struct {
	PeerID    int64
	Peer      Peer
	UserID    int64
	Flags     int64
	Timestamp int64
}

// EventType implements Event.
func (*UserRecordingVoice) EventType() Type { return TypeUserRecordingVoice }

// Time returns the event timestamp (zero if unset).
func (e *UserRecordingVoice) Time() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(e.Timestamp, 0).UTC()
}

// UserCall reports a call made by a user (code 70).
type UserCall struct {
	UserID int64
	CallID int64
}

// EventType implements Event.
func (*UserCall) EventType() Type { return TypeUserCall }

// CounterUpdate reports the unread counter in the left menu (code 80).
type CounterUpdate struct {
	Count int64
}

// EventType implements Event.
func (*CounterUpdate) EventType() Type { return TypeCounterUpdate }

// NotificationSettings reports changed notification settings for a
// peer (code 114). Values keeps the settings object as received.
type NotificationSettings struct {
	PeerID        int64
	Peer          Peer
	Sound         int64
	DisabledUntil int64
	Values        map[string]any
}

// EventType implements Event.
func (*NotificationSettings) EventType() Type { return TypeNotificationSettings }

// Unknown preserves updates whose type code has no registered variant.
// Raw is the update as received, including the code element.
type Unknown struct {
	Code int64
	Raw  Update
}

// EventType implements Event.
func (e *Unknown) EventType() Type { return Type(e.Code) }
