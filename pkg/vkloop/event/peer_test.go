package event_test

import (
	"testing"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
)

func TestSplitPeer(t *testing.T) {
	tests := []struct {
		peerID int64
		kind   event.PeerKind
		id     int64
	}{
		{42, event.PeerUser, 42},
		{0, event.PeerUser, 0},
		{-42, event.PeerGroup, 42},
		{2_000_000_001, event.PeerChat, 1},
		{2_000_000_000, event.PeerUser, 2_000_000_000},
		{2_000_000_250, event.PeerChat, 250},
		{-1, event.PeerGroup, 1},
	}
	for _, tt := range tests {
		got := event.SplitPeer(tt.peerID)
		if got.Kind != tt.kind || got.ID != tt.id {
			t.Errorf("SplitPeer(%d): expected %v %d, got %v %d",
				tt.peerID, tt.kind, tt.id, got.Kind, got.ID)
		}
	}
}

func TestPeerKindString(t *testing.T) {
	if event.PeerChat.String() != "chat" {
		t.Errorf("unexpected chat name %q", event.PeerChat)
	}
	if event.PeerGroup.String() != "group" {
		t.Errorf("unexpected group name %q", event.PeerGroup)
	}
	if event.PeerUser.String() != "user" {
		t.Errorf("unexpected user name %q", event.PeerUser)
	}
}
