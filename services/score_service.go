// services/score_service.go
package services

import (
	"github.com/Asvera/king-minister-game/registry"
)

// Score deltas applied when a minister guess resolves. The King is credited
// only once, at seating.
const (
	MinisterCorrectBonus = 500
	PoliceCorrectBonus   = 200
	PoliceIncorrectBonus = 400
	ThiefIncorrectBonus  = 200
)

// ScoreService owns all score mutation for seated participants. The room
// holding the participants is its only caller.
type ScoreService struct {
	registry *registry.Registry
}

func NewScoreService(reg *registry.Registry) *ScoreService {
	return &ScoreService{registry: reg}
}

// ResetForGame zeroes the score of every participant being seated.
func (s *ScoreService) ResetForGame(ids []string) {
	for _, id := range ids {
		s.registry.SetScore(id, 0)
	}
}

// ApplyKingBonus credits the King's fixed seating bonus.
func (s *ScoreService) ApplyKingBonus(id string, bonus int) {
	s.registry.SetScore(id, bonus)
}

// ApplyGuessOutcome credits the round's winners on top of existing scores.
func (s *ScoreService) ApplyGuessOutcome(correct bool, ministerID, policeID, thiefID string) {
	if correct {
		s.registry.AddScore(ministerID, MinisterCorrectBonus)
		s.registry.AddScore(policeID, PoliceCorrectBonus)
		return
	}
	s.registry.AddScore(policeID, PoliceIncorrectBonus)
	s.registry.AddScore(thiefID, ThiefIncorrectBonus)
}

// Scoreboard snapshots the cumulative scores of the given participants.
// Ids without a live registry entry report zero.
func (s *ScoreService) Scoreboard(ids []string) map[string]int {
	scores := make(map[string]int, len(ids))
	for _, id := range ids {
		if p, ok := s.registry.Get(id); ok {
			scores[id] = p.Score
		} else {
			scores[id] = 0
		}
	}
	return scores
}
