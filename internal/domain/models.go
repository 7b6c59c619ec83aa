package domain

import "time"

// Operation selects the arithmetic used to build questions.
type Operation string

const (
	OpAddition       Operation = "addition"
	OpSubtraction    Operation = "subtraction"
	OpMultiplication Operation = "multiplication"
	OpDivision       Operation = "division"
	OpMixed          Operation = "mixed"
)

// Valid reports whether op is one of the supported operations.
func (op Operation) Valid() bool {
	switch op {
	case OpAddition, OpSubtraction, OpMultiplication, OpDivision, OpMixed:
		return true
	}
	return false
}

// Difficulty is 1 (operands 1..10) or 2 (operands 1..100).
type Difficulty int

const (
	DifficultyEasy Difficulty = 1
	DifficultyHard Difficulty = 2
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyHard
}

// GameOptions are fixed when the owner starts a game.
type GameOptions struct {
	Operation  Operation  `json:"type"`
	Difficulty Difficulty `json:"level"`
}

// Validate fills in defaults for a zero value and rejects unknown settings.
func (o GameOptions) Validate() (GameOptions, error) {
	if o.Operation == "" {
		o.Operation = OpAddition
	}
	if o.Difficulty == 0 {
		o.Difficulty = DifficultyEasy
	}
	if !o.Operation.Valid() || !o.Difficulty.Valid() {
		return o, ErrInvalidOptions
	}
	return o, nil
}

// Question is replaced wholesale on every advance, never mutated.
type Question struct {
	Prompt      string    `json:"question"`
	Operation   Operation `json:"operation"`
	Answer      int       `json:"answer"`
	Choices     []int     `json:"choices"`
	TimeLimitMs int64     `json:"timeLimit"`
}

// PlayerView is the roster entry sent to clients.
type PlayerView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	Avatar       string `json:"avatar"`
	Disconnected bool   `json:"disconnected"`
}

// ScoreEntry is one player's line in a score-delta or final-score broadcast.
type ScoreEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Avatar    string `json:"avatar"`
	Increment int    `json:"increment"`
}

// GameResult is the archived outcome of a finished session.
type GameResult struct {
	ID             string       `json:"id"`
	RoomCode       string       `json:"roomCode"`
	OwnerID        string       `json:"ownerId"`
	Options        GameOptions  `json:"options"`
	QuestionsAsked int          `json:"questionsAsked"`
	Scores         []ScoreEntry `json:"scores"`
	FinishedAt     time.Time    `json:"finishedAt"`
}
