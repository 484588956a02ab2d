// Package model defines the data models for the quiz host bot.
package model

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Game status values. A game cycles OFF -> TEAM_UP -> DISCUSSION ->
// CAPITAN -> ANSWER -> WAIT and back to DISCUSSION or OFF.
const (
	StatusOff        = "off"
	StatusTeamUp     = "team_up"
	StatusDiscussion = "discussion"
	StatusCapitan    = "capitan"
	StatusAnswer     = "answer"
	StatusWait       = "wait"
)

// WinningScore is the score at which a round resolves for either side.
const WinningScore = 6

// Game is the per-chat game session. The chat ID is the primary key; one
// chat never has more than one active game.
type Game struct {
	ChatID          int64     `db:"chat_id"`
	Status          string    `db:"status"`
	ScoreTeam       int       `db:"score_team"`
	ScoreHost       int       `db:"score_host"`
	Team            []int64   `db:"team"`
	ResponderID     int64     `db:"responder_id"`
	QuestionHistory []int64   `db:"question_history"`
	UpdateTime      int64     `db:"update_time"`
	Wins            int       `db:"wins"`
	Loses           int       `db:"loses"`
	Canceled        int       `db:"canceled"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Player is a Telegram user known to the bot. Players are global, not
// per-chat; the answer counters accumulate across all games.
type Player struct {
	ID         int64     `db:"id"`
	FirstName  string    `db:"first_name"`
	Username   string    `db:"username"`
	AnsCorrect int       `db:"ans_correct"`
	AnsWrong   int       `db:"ans_wrong"`
	AnsLate    int       `db:"ans_late"`
	CreatedAt  time.Time `db:"created_at"`
}

// Question is an immutable title/answer pair shared by all games.
type Question struct {
	ID     int64  `db:"id"`
	Title  string `db:"title"`
	Answer string `db:"answer"`
}

// TeamSize returns the number of players who joined the current round.
func (g *Game) TeamSize() int {
	return len(g.Team)
}

// InTeam reports whether the player already joined the current round.
func (g *Game) InTeam(playerID int64) bool {
	for _, id := range g.Team {
		if id == playerID {
			return true
		}
	}
	return false
}

// AddToTeam appends a player; join order is preserved.
func (g *Game) AddToTeam(playerID int64) {
	g.Team = append(g.Team, playerID)
}

// ShuffleTeam randomizes the team order. The head of the shuffled team is
// the captain for the whole round, so this must only run at game start.
func (g *Game) ShuffleTeam() {
	rand.Shuffle(len(g.Team), func(i, j int) {
		g.Team[i], g.Team[j] = g.Team[j], g.Team[i]
	})
}

// CaptainID returns the head of the team, or 0 when the team is empty.
// The captain is derived from team order; it is never stored separately.
func (g *Game) CaptainID() int64 {
	if len(g.Team) == 0 {
		return 0
	}
	return g.Team[0]
}

// AddQuestionToHistory marks a question as used within the current cycle.
func (g *Game) AddQuestionToHistory(questionID int64) {
	g.QuestionHistory = append(g.QuestionHistory, questionID)
}

// InHistory reports whether the question was already asked this cycle.
func (g *Game) InHistory(questionID int64) bool {
	for _, id := range g.QuestionHistory {
		if id == questionID {
			return true
		}
	}
	return false
}

// ClearHistory starts a new question cycle.
func (g *Game) ClearHistory() {
	g.QuestionHistory = nil
}

// LastQuestionID returns the question currently in play, or 0 when no
// question has been asked yet.
func (g *Game) LastQuestionID() int64 {
	if len(g.QuestionHistory) == 0 {
		return 0
	}
	return g.QuestionHistory[len(g.QuestionHistory)-1]
}

// ClearRound resets the game to OFF with an empty team and zero scores.
// Lifetime counters and the question history survive the reset.
func (g *Game) ClearRound() {
	g.Status = StatusOff
	g.Team = nil
	g.ResponderID = 0
	g.ScoreTeam = 0
	g.ScoreHost = 0
}

// Score renders the running score the way the host announces it.
func (g *Game) Score() string {
	return fmt.Sprintf("TEAM: %d\nHOST: %d", g.ScoreTeam, g.ScoreHost)
}

// Statistic renders the lifetime group statistic.
func (g *Game) Statistic() string {
	return fmt.Sprintf("Team wins: %d\nHost wins: %d\nCanceled games: %d", g.Wins, g.Loses, g.Canceled)
}

// DisplayName returns "@username" when the player has a handle, the first
// name otherwise.
func (p *Player) DisplayName() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	return p.FirstName
}

// Statistic renders the lifetime player statistic.
func (p *Player) Statistic() string {
	return fmt.Sprintf(
		"%s stats:\nCorrect answers: %d\nWrong answers: %d\nLate answers: %d",
		p.FirstName, p.AnsCorrect, p.AnsWrong, p.AnsLate,
	)
}

// CheckAnswer compares a submitted answer against the expected one after
// normalizing both sides.
func (q *Question) CheckAnswer(answer string) bool {
	return NormalizeAnswer(answer) == NormalizeAnswer(q.Answer)
}

// NormalizeAnswer lower-cases the text, collapses inner whitespace and
// strips trailing punctuation so "The Moon." matches "the moon".
func NormalizeAnswer(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!?")
	return strings.Join(strings.Fields(s), " ")
}
