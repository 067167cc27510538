// Package room derives canonical keys for two-party, scope-bound conversations.
//
// Both participants of a conversation must converge on the same room key
// without a handshake or a server-assigned id, so the key is a pure function
// of the scope and the participant pair: the pair is sorted before joining.
package room

import (
	"errors"
	"strings"
)

const separator = ":"

var (
	ErrEmptyParticipant = errors.New("room: participant id must not be empty")
	ErrSameParticipant  = errors.New("room: participants must differ")
	ErrMalformedRoomID  = errors.New("room: malformed room id")
	ErrNotParticipant   = errors.New("room: user is not a participant of this room")
)

// Derive returns the canonical room key for the two participants under scope.
// The result is identical regardless of argument order. An empty scope yields
// a global per-pair room; callers must pick one scoping convention and stick
// to it, since changing it orphans prior history.
func Derive(scope, userA, userB string) (string, error) {
	if userA == "" || userB == "" {
		return "", ErrEmptyParticipant
	}
	if userA == userB {
		return "", ErrSameParticipant
	}
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}
	if scope == "" {
		return lo + separator + hi, nil
	}
	return scope + separator + lo + separator + hi, nil
}

// Other resolves the participant that is not selfID from a derived room key.
// Used for click-through navigation from a notification back into the room.
func Other(roomID, selfID string) (string, error) {
	parts := strings.Split(roomID, separator)
	if len(parts) < 2 {
		return "", ErrMalformedRoomID
	}
	lo, hi := parts[len(parts)-2], parts[len(parts)-1]
	if lo == "" || hi == "" {
		return "", ErrMalformedRoomID
	}
	switch selfID {
	case lo:
		return hi, nil
	case hi:
		return lo, nil
	}
	return "", ErrNotParticipant
}
