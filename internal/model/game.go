// Package model holds the typed records that replace a loose
// map-of-string game state: Game, Question, Player and GameState, each
// serialized whole into the store.
package model

import "time"

// Question is one multiple-choice question as stored in a Game's question
// list. Options share a uniform key case (all upper or all lower).
type Question struct {
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Answer   string            `json:"answer"`
}

// PlayerQuestion is the wire shape of a Question once it has been handed to
// a player: the answer is stripped and timing/progress fields are attached.
type PlayerQuestion struct {
	Question           string            `json:"question"`
	Options            map[string]string `json:"options"`
	StartTime          float64           `json:"start_time"`
	QuestionsRemaining int               `json:"questions_remaining"`
	TotalQuestions     int               `json:"total_questions"`
}

// Game is the immutable header for one game instance: code, question bank,
// and the wall-clock time of first start (nil until then).
type Game struct {
	Code      string     `json:"code"`
	Questions []Question `json:"questions"`
	StartTime *time.Time `json:"start_time"`
}

// WithoutQuestions returns a copy of the header with Questions cleared, for
// embedding in the host metrics payload without bloating the socket frame.
func (g Game) WithoutQuestions() Game {
	g.Questions = nil
	return g
}

// ToPlayerQuestion strips the answer and annotates the question for
// transmission to a player.
func (q Question) ToPlayerQuestion(startTime time.Time, remaining, total int) PlayerQuestion {
	return PlayerQuestion{
		Question:           q.Question,
		Options:            q.Options,
		StartTime:          float64(startTime.UnixNano()) / 1e9,
		QuestionsRemaining: remaining,
		TotalQuestions:     total,
	}
}
