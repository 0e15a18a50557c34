package event

import "strings"

// MessageFlags is the message flag bitmask delivered with message
// events. See https://vk.com/dev/using_longpoll (message flags).
type MessageFlags int64

const (
	FlagUnread     MessageFlags = 1 << 0
	FlagOutbox     MessageFlags = 1 << 1
	FlagReplied    MessageFlags = 1 << 2
	FlagImportant  MessageFlags = 1 << 3
	FlagChat       MessageFlags = 1 << 4
	FlagFriends    MessageFlags = 1 << 5
	FlagSpam       MessageFlags = 1 << 6
	FlagDeleted    MessageFlags = 1 << 7
	FlagFixed      MessageFlags = 1 << 8
	FlagMedia      MessageFlags = 1 << 9
	FlagHidden     MessageFlags = 1 << 16
	FlagDeletedAll MessageFlags = 1 << 17
)

var messageFlagNames = []struct {
	flag MessageFlags
	name string
}{
	{FlagUnread, "unread"},
	{FlagOutbox, "outbox"},
	{FlagReplied, "replied"},
	{FlagImportant, "important"},
	{FlagChat, "chat"},
	{FlagFriends, "friends"},
	{FlagSpam, "spam"},
	{FlagDeleted, "deleted"},
	{FlagFixed, "fixed"},
	{FlagMedia, "media"},
	{FlagHidden, "hidden"},
	{FlagDeletedAll, "deleted_all"},
}

// Has reports whether all bits of flag are set.
func (f MessageFlags) Has(flag MessageFlags) bool {
	return f&flag == flag
}

// List expands the bitmask into its known individual flags.
func (f MessageFlags) List() []MessageFlags {
	var out []MessageFlags
	for _, e := range messageFlagNames {
		if f&e.flag != 0 {
			out = append(out, e.flag)
		}
	}
	return out
}

// String renders the known set bits pipe-joined, e.g. "unread|chat".
func (f MessageFlags) String() string {
	var names []string
	for _, e := range messageFlagNames {
		if f&e.flag != 0 {
			names = append(names, e.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// PeerFlags is the dialog flag bitmask (community dialogs only).
type PeerFlags int64

const (
	PeerFlagImportant  PeerFlags = 1
	PeerFlagUnanswered PeerFlags = 2
)

// Has reports whether all bits of flag are set.
func (f PeerFlags) Has(flag PeerFlags) bool {
	return f&flag == flag
}

// String renders the known set bits pipe-joined.
func (f PeerFlags) String() string {
	var names []string
	if f&PeerFlagImportant != 0 {
		names = append(names, "important")
	}
	if f&PeerFlagUnanswered != 0 {
		names = append(names, "unanswered")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Platform identifies the client platform in online events.
type Platform int

const (
	PlatformUnknown      Platform = 0
	PlatformMobile       Platform = 1
	PlatformIPhone       Platform = 2
	PlatformIPad         Platform = 3
	PlatformAndroid      Platform = 4
	PlatformWindowsPhone Platform = 5
	PlatformWindows      Platform = 6
	PlatformWeb          Platform = 7
)

// String returns the platform name, or "unknown" for unmapped values.
func (p Platform) String() string {
	switch p {
	case PlatformMobile:
		return "mobile"
	case PlatformIPhone:
		return "iphone"
	case PlatformIPad:
		return "ipad"
	case PlatformAndroid:
		return "android"
	case PlatformWindowsPhone:
		return "wphone"
	case PlatformWindows:
		return "windows"
	case PlatformWeb:
		return "web"
	default:
		return "unknown"
	}
}

// platformFromExtra derives the platform from the low byte of the
// extra value in online events.
func platformFromExtra(extra int64) Platform {
	p := Platform(extra & 0xFF)
	if p < PlatformMobile || p > PlatformWeb {
		return PlatformUnknown
	}
	return p
}

// OfflineKind says why a user went offline.
type OfflineKind int

const (
	// OfflineExit means the user left the site.
	OfflineExit OfflineKind = 0
	// OfflineAway means the session timed out.
	OfflineAway OfflineKind = 1
)

// String returns "exit" or "away" ("unknown" otherwise).
func (k OfflineKind) String() string {
	switch k {
	case OfflineExit:
		return "exit"
	case OfflineAway:
		return "away"
	default:
		return "unknown"
	}
}

// ChatEventKind identifies what changed in a chat-update event.
type ChatEventKind int

const (
	ChatTitleChanged    ChatEventKind = 1
	ChatPhotoChanged    ChatEventKind = 2
	ChatAdminAdded      ChatEventKind = 3
	ChatSettingsChanged ChatEventKind = 4
	ChatMessagePinned   ChatEventKind = 5
	ChatUserJoined      ChatEventKind = 6
	ChatUserLeft        ChatEventKind = 7
	ChatUserKicked      ChatEventKind = 8
	ChatAdminRemoved    ChatEventKind = 9
	ChatKeyboardGot     ChatEventKind = 11
)

// String returns a stable lowercase name for logs.
func (k ChatEventKind) String() string {
	switch k {
	case ChatTitleChanged:
		return "title_changed"
	case ChatPhotoChanged:
		return "photo_changed"
	case ChatAdminAdded:
		return "admin_added"
	case ChatSettingsChanged:
		return "settings_changed"
	case ChatMessagePinned:
		return "message_pinned"
	case ChatUserJoined:
		return "user_joined"
	case ChatUserLeft:
		return "user_left"
	case ChatUserKicked:
		return "user_kicked"
	case ChatAdminRemoved:
		return "admin_removed"
	case ChatKeyboardGot:
		return "keyboard_received"
	default:
		return "unknown"
	}
}
