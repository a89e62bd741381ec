package models

import (
	"sort"
	"time"
)

// TeamRole orders members within a team run: coordinator first, then
// specialists, then support.
type TeamRole string

const (
	TeamRoleCoordinator TeamRole = "coordinator"
	TeamRoleSpecialist  TeamRole = "specialist"
	TeamRoleSupport     TeamRole = "support"
)

var teamRoleRank = map[TeamRole]int{
	TeamRoleCoordinator: 0,
	TeamRoleSpecialist:  1,
	TeamRoleSupport:     2,
}

// TeamStatus represents the lifecycle state of a team.
type TeamStatus string

const (
	TeamStatusActive   TeamStatus = "active"
	TeamStatusPaused   TeamStatus = "paused"
	TeamStatusArchived TeamStatus = "archived"
)

// TeamMember binds an agent to a team with a role and an ordering priority
// within that role (lower runs first).
type TeamMember struct {
	AgentID  string   `json:"agentId" validate:"required"`
	Role     TeamRole `json:"role"    validate:"required,oneof=coordinator specialist support"`
	Priority int      `json:"priority"`
}

// Team is a named ordering/membership policy over agents sharing one
// objective. It adds no execution semantics of its own.
type Team struct {
	ID         string       `json:"id"`
	Name       string       `json:"name" validate:"required"`
	Department string       `json:"department,omitempty"`
	Status     TeamStatus   `json:"status" validate:"required,oneof=active paused archived"`
	Members    []TeamMember `json:"members" validate:"required,min=1,dive"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// OrderedMembers returns members in run order: role rank first, then
// priority ascending. The receiver's slice is not modified.
func (t *Team) OrderedMembers() []TeamMember {
	ordered := make([]TeamMember, len(t.Members))
	copy(ordered, t.Members)

	sort.SliceStable(ordered, func(i, j int) bool {
		if teamRoleRank[ordered[i].Role] != teamRoleRank[ordered[j].Role] {
			return teamRoleRank[ordered[i].Role] < teamRoleRank[ordered[j].Role]
		}

		return ordered[i].Priority < ordered[j].Priority
	})

	return ordered
}
