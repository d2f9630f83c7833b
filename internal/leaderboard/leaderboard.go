// Package leaderboard computes the per-player relative view and the
// host-facing aggregate metrics view, both as pure functions over a Players
// snapshot. Grounded on original_source/backend/helper/helper.py's
// get_relative_leaderboard and get_players_metrics.
package leaderboard

import "quizrunner/internal/model"

// Neighbor is one slot (ahead or behind) in a player's relative view.
type Neighbor struct {
	PlayerName   string  `json:"player_name"`
	AvgScore     int     `json:"avg_score"`
	GithubAvatar *string `json:"github_avatar"`
}

// Relative is the payload sent to a player after they finish a question.
type Relative struct {
	Ahead    *Neighbor `json:"ahead"`
	Behind   *Neighbor `json:"behind"`
	Place    int       `json:"place"`
	Score    int       `json:"score"`
	AvgScore int       `json:"avg_score"`
}

// ForPlayer computes playerName's relative standing within players. Ties in
// avg_score are broken arbitrarily by map iteration order, matching the
// source's unordered-dict behavior.
func ForPlayer(players model.Players, playerName string) Relative {
	self := players[playerName]
	selfAvg := self.AvgScore()

	rel := Relative{
		Score:    self.Score,
		AvgScore: selfAvg,
	}

	place := 1
	for name, other := range players {
		if name == playerName {
			continue
		}
		otherAvg := other.AvgScore()

		if otherAvg > selfAvg {
			place++
			if rel.Ahead == nil || otherAvg < rel.Ahead.AvgScore {
				rel.Ahead = &Neighbor{PlayerName: name, AvgScore: otherAvg, GithubAvatar: other.GithubAvatar}
			}
		} else if otherAvg < selfAvg {
			if rel.Behind == nil || otherAvg > rel.Behind.AvgScore {
				rel.Behind = &Neighbor{PlayerName: name, AvgScore: otherAvg, GithubAvatar: other.GithubAvatar}
			}
		}
	}
	rel.Place = place

	return rel
}

// PlayerMetrics is the per-player shape of the host aggregate view.
type PlayerMetrics struct {
	Score              int     `json:"score"`
	AvgScore           int     `json:"avg_score"`
	CorrectQuestions   []int   `json:"correct_questions"`
	IncorrectQuestions []int   `json:"incorrect_questions"`
	RemainingQuestions []int   `json:"remaining_questions"`
	GithubAvatar       *string `json:"github_avatar"`
}

// Aggregate computes the host-facing per-player metrics map. Calling this
// twice on the same snapshot yields identical output (idempotent).
func Aggregate(players model.Players) map[string]PlayerMetrics {
	out := make(map[string]PlayerMetrics, len(players))
	for name, p := range players {
		out[name] = PlayerMetrics{
			Score:              p.Score,
			AvgScore:           p.AvgScore(),
			CorrectQuestions:   p.CorrectQuestions,
			IncorrectQuestions: p.IncorrectQuestions,
			RemainingQuestions: p.RemainingQuestions,
			GithubAvatar:       p.GithubAvatar,
		}
	}
	return out
}
