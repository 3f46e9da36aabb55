package models

import (
	"math/rand"
	"testing"
)

func TestShuffledRoles_IsBijection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		shuffled := ShuffledRoles(rng)
		if len(shuffled) != 4 {
			t.Fatalf("Expected 4 roles, got %d", len(shuffled))
		}
		seen := make(map[Role]int)
		for _, role := range shuffled {
			seen[role]++
		}
		for _, role := range AllRoles() {
			if seen[role] != 1 {
				t.Fatalf("Role %s appears %d times in %v", role, seen[role], shuffled)
			}
		}
	}
}

func TestShuffledRoles_ProducesEveryPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	perms := make(map[[4]Role]bool)
	for i := 0; i < 2000; i++ {
		shuffled := ShuffledRoles(rng)
		perms[[4]Role{shuffled[0], shuffled[1], shuffled[2], shuffled[3]}] = true
	}

	// 4! = 24 permutations; 2000 draws should hit all of them.
	if len(perms) != 24 {
		t.Errorf("Expected all 24 permutations, saw %d", len(perms))
	}
}
