package event

// ChatOffset is the peer-ID offset of multi-user chats. A peer ID above
// it addresses a chat; subtract it to get the chat ID, add it to build
// a chat peer ID for outbound calls.
const ChatOffset int64 = 2_000_000_000

// PeerKind classifies a peer ID.
type PeerKind int

const (
	PeerUser PeerKind = iota
	PeerChat
	PeerGroup
)

// String returns "user", "chat" or "group".
func (k PeerKind) String() string {
	switch k {
	case PeerChat:
		return "chat"
	case PeerGroup:
		return "group"
	default:
		return "user"
	}
}

// Peer is a classified peer: Kind plus the identifier in that kind's
// own space (chat IDs offset-corrected, group IDs positive).
type Peer struct {
	Kind PeerKind
	ID   int64
}

// SplitPeer classifies a raw wire peer ID. Negative IDs address groups,
// IDs above ChatOffset address chats, everything else users.
func SplitPeer(peerID int64) Peer {
	switch {
	case peerID < 0:
		return Peer{Kind: PeerGroup, ID: -peerID}
	case peerID > ChatOffset:
		return Peer{Kind: PeerChat, ID: peerID - ChatOffset}
	default:
		return Peer{Kind: PeerUser, ID: peerID}
	}
}
