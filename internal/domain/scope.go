package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type ScopeKind string

const (
	ScopeGroup   ScopeKind = "group"
	ScopeChannel ScopeKind = "channel"
)

// GeneralChannel is the open discussion room.
const GeneralChannel = "general"

// Scope partitions the message stream: either a group or a flat named channel.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"`
}

func GroupScope(id uuid.UUID) Scope {
	return Scope{Kind: ScopeGroup, ID: id.String()}
}

func ChannelScope(name string) Scope {
	return Scope{Kind: ScopeChannel, ID: name}
}

// Key is the storage form, e.g. "group:<uuid>" or "channel:general".
func (s Scope) Key() string {
	return string(s.Kind) + ":" + s.ID
}

// Topic is the broker subject for change notifications on this scope.
func (s Scope) Topic() string {
	return "scope." + string(s.Kind) + "." + s.ID
}

func (s Scope) String() string {
	return s.Key()
}

// GroupID returns the parsed group id for group scopes.
func (s Scope) GroupID() (uuid.UUID, bool) {
	if s.Kind != ScopeGroup {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func ParseScope(key string) (Scope, error) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return Scope{}, fmt.Errorf("invalid scope %q", key)
	}
	switch ScopeKind(kind) {
	case ScopeGroup, ScopeChannel:
		return Scope{Kind: ScopeKind(kind), ID: id}, nil
	}
	return Scope{}, fmt.Errorf("invalid scope kind %q", kind)
}
