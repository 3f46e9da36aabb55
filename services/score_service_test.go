package services

import (
	"os"
	"testing"

	"github.com/Asvera/king-minister-game/logger"
	"github.com/Asvera/king-minister-game/registry"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func newService() (*ScoreService, *registry.Registry) {
	reg := registry.New()
	for _, id := range []string{"king", "minister", "thief", "police"} {
		reg.Register(id)
	}
	return NewScoreService(reg), reg
}

func TestApplyGuessOutcome_Correct(t *testing.T) {
	svc, reg := newService()

	svc.ApplyGuessOutcome(true, "minister", "police", "thief")

	cases := map[string]int{"minister": 500, "police": 200, "thief": 0, "king": 0}
	for id, want := range cases {
		p, _ := reg.Get(id)
		if p.Score != want {
			t.Errorf("Expected %s to have %d, got %d", id, want, p.Score)
		}
	}
}

func TestApplyGuessOutcome_Incorrect(t *testing.T) {
	svc, reg := newService()

	svc.ApplyGuessOutcome(false, "minister", "police", "thief")

	cases := map[string]int{"minister": 0, "police": 400, "thief": 200, "king": 0}
	for id, want := range cases {
		p, _ := reg.Get(id)
		if p.Score != want {
			t.Errorf("Expected %s to have %d, got %d", id, want, p.Score)
		}
	}
}

func TestApplyGuessOutcome_Accumulates(t *testing.T) {
	svc, reg := newService()

	svc.ApplyGuessOutcome(true, "minister", "police", "thief")
	svc.ApplyGuessOutcome(false, "minister", "police", "thief")

	p, _ := reg.Get("police")
	if p.Score != 600 {
		t.Errorf("Expected police to accumulate 600, got %d", p.Score)
	}
}

func TestKingBonus_And_Reset(t *testing.T) {
	svc, reg := newService()

	svc.ApplyKingBonus("king", 1000)
	p, _ := reg.Get("king")
	if p.Score != 1000 {
		t.Errorf("Expected king bonus 1000, got %d", p.Score)
	}

	svc.ResetForGame([]string{"king", "minister"})
	p, _ = reg.Get("king")
	if p.Score != 0 {
		t.Errorf("Expected reset score 0, got %d", p.Score)
	}
}

func TestScoreboard_ZeroesMissingIds(t *testing.T) {
	svc, reg := newService()
	reg.AddScore("minister", 500)

	scores := svc.Scoreboard([]string{"minister", "ghost"})
	if scores["minister"] != 500 {
		t.Errorf("Expected 500 for minister, got %d", scores["minister"])
	}
	if scores["ghost"] != 0 {
		t.Errorf("Expected 0 for missing id, got %d", scores["ghost"])
	}
}
