package model

import "time"

// NumAttempts is the number of attempts a player gets per question.
const NumAttempts = 2

// Player is one player's durable record within a game, keyed by player name
// in the Players map. CurrentQuestionIndex == -1 means idle between
// questions; QuestionStartTime is nil exactly when idle.
type Player struct {
	ID                   string     `json:"id"`
	Score                int        `json:"score"`
	RemainingQuestions   []int      `json:"remaining_questions"`
	CorrectQuestions     []int      `json:"correct_questions"`
	IncorrectQuestions   []int      `json:"incorrect_questions"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	QuestionStartTime    *time.Time `json:"question_start_time"`
	QuestionAttempt      int        `json:"question_attempt"`
	WebsocketID          string     `json:"websocket_id,omitempty"`
	GithubAvatar         *string    `json:"github_avatar"`
}

// Players is the whole-value record stored at game:<code>:players.
type Players map[string]*Player

// NewPlayer builds a fresh player record with a uniform random permutation
// of all question indices, consumed from the tail as questions are served.
func NewPlayer(id string, numQuestions int, avatar *string, perm func(int) []int) *Player {
	return &Player{
		ID:                   id,
		Score:                0,
		RemainingQuestions:   perm(numQuestions),
		CorrectQuestions:     []int{},
		IncorrectQuestions:   []int{},
		CurrentQuestionIndex: -1,
		QuestionStartTime:    nil,
		QuestionAttempt:      0,
		GithubAvatar:         avatar,
	}
}

// Idle reports whether the player is between questions.
func (p *Player) Idle() bool {
	return p.CurrentQuestionIndex == -1
}

// QuestionsAnswered returns the number of questions this player has
// finished, correct or not — the denominator for avg_score.
func (p *Player) QuestionsAnswered() int {
	return len(p.CorrectQuestions) + len(p.IncorrectQuestions)
}

// AvgScore is score / (correct+incorrect) with truncating division, 0 when
// the denominator is 0.
func (p *Player) AvgScore() int {
	n := p.QuestionsAnswered()
	if n == 0 {
		return 0
	}
	return p.Score / n
}
