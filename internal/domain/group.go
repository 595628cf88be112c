package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type Member struct {
	Role Role `json:"role"`
}

type Group struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	CreatedAt time.Time            `json:"created_at"`
	CreatedBy uuid.UUID            `json:"created_by"`
	Members   map[uuid.UUID]Member `json:"members"`
}

func (g *Group) HasMember(id uuid.UUID) bool {
	_, ok := g.Members[id]
	return ok
}

func (g *Group) IsAdmin(id uuid.UUID) bool {
	m, ok := g.Members[id]
	return ok && m.Role == RoleAdmin
}
