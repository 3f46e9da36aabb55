package models

import "math/rand"

// Role is a player's secret role within a room for a single round.
type Role string

const (
	RoleNone     Role = ""
	RoleKing     Role = "King"
	RoleMinister Role = "Minister"
	RoleThief    Role = "Thief"
	RolePolice   Role = "Police"
)

func (r Role) String() string {
	return string(r)
}

// AllRoles returns the four role tags dealt each round.
func AllRoles() []Role {
	return []Role{RoleKing, RoleMinister, RoleThief, RolePolice}
}

// ShuffledRoles returns a uniformly random permutation of the four roles.
// Assigning shuffled[i] to seat i yields a uniform bijection between seats
// and roles.
func ShuffledRoles(rng *rand.Rand) []Role {
	roles := AllRoles()
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})
	return roles
}
