package session

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// DefaultRoom is used when the conversation context carries no room name.
const DefaultRoom = "default_room"

// Identity binds a room name to its deterministic session id.
type Identity struct {
	RoomName  string
	SessionID string
	Fallback  bool // room name was missing and DefaultRoom was used
}

// UUID returns the session id in parsed form.
func (i Identity) UUID() uuid.UUID {
	return uuid.MustParse(i.SessionID)
}

// Resolve derives the session id for a room. The same room always yields the
// same id. A blank room name resolves to DefaultRoom and is never an error.
func Resolve(roomName string) Identity {
	room := strings.TrimSpace(roomName)
	fallback := false
	if room == "" {
		slog.Warn("room name unavailable, using default room", "room", DefaultRoom)
		room = DefaultRoom
		fallback = true
	}

	return Identity{
		RoomName:  room,
		SessionID: uuid.NewSHA1(uuid.NameSpaceDNS, []byte(room)).String(),
		Fallback:  fallback,
	}
}
