package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magnusohlin/numba/internal/domain"
)

const (
	basePoints       = 100
	pointsPerSecond  = 10
	defaultQuestions = 10
	msPerSecond      = int64(time.Second / time.Millisecond)
)

// Points awarded for a correct answer with remainingMs left on the clock.
// The bonus counts whole seconds.
func Points(remainingMs int64) int {
	if remainingMs < 0 {
		remainingMs = 0
	}
	return basePoints + int(remainingMs/msPerSecond)*pointsPerSecond
}

// record applies one submission. A second submission for the same question
// is ignored so the aggregate does not depend on delivery order.
func (r *Room) record(p *player, value float64, remainingMs int64) {
	if p.answered {
		return
	}
	p.answered = true
	p.timeRemainingMs = remainingMs
	p.answeredCorrectly = r.question != nil && value == float64(r.question.Answer)
	if p.answeredCorrectly {
		p.score += Points(remainingMs)
	}
}

// resolveUnanswered treats every active player without an answer as wrong.
func (r *Room) resolveUnanswered() {
	r.each(func(p *player) {
		if !p.disconnected && !p.answered {
			p.answered = true
			p.answeredCorrectly = false
			p.timeRemainingMs = 0
		}
	})
}

// barrierReached reports whether every non-disconnected player answered.
// A room without active players never reaches it through answers alone;
// the countdown expiry resolves that question instead.
func (r *Room) barrierReached() bool {
	active := 0
	for _, p := range r.players {
		if p.disconnected {
			continue
		}
		active++
		if !p.answered {
			return false
		}
	}
	return active > 0
}

func (r *Room) scoreDeltas() []domain.ScoreEntry {
	scores := make([]domain.ScoreEntry, 0, len(r.order))
	r.each(func(p *player) {
		increment := 0
		if p.answeredCorrectly {
			increment = Points(p.timeRemainingMs)
		}
		scores = append(scores, domain.ScoreEntry{
			ID:        p.id,
			Name:      p.name,
			Score:     p.score,
			Avatar:    p.avatar,
			Increment: increment,
		})
	})
	return scores
}

func (r *Room) resetAnswers() {
	for _, p := range r.players {
		p.answered = false
		p.answeredCorrectly = false
		p.timeRemainingMs = 0
	}
}

// advanceLocked closes the current question and either starts the next one
// or ends the session. Caller holds room.mu.
func (c *Coordinator) advanceLocked(room *Room) {
	scores := room.scoreDeltas()
	room.resetAnswers()
	room.questionsAsked++

	if room.questionsAsked > c.maxQuestions {
		room.countdown.Reset()
		room.state = RoomIdle
		room.question = nil
		log.Info().
			Str("room_code", room.code).
			Int("questions_asked", room.questionsAsked).
			Msg("game ended")
		c.broadcaster.Broadcast(room.code, EndGame{Scores: scores, QuestionsAsked: room.questionsAsked})
		c.recordResult(room, scores)
		return
	}

	q := c.questions.Generate(room.options.Operation, room.options.Difficulty)
	room.question = &q
	room.countdown.Start(c.timeLimit())
	log.Debug().
		Str("room_code", room.code).
		Int("questions_asked", room.questionsAsked).
		Str("prompt", q.Prompt).
		Msg("next question")
	c.broadcaster.Broadcast(room.code, NextQuestion{Question: q, Scores: scores, QuestionsAsked: room.questionsAsked})
}

// onTick is the countdown callback for room.
func (c *Coordinator) onTick(room *Room, gen uint64) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed {
		return
	}
	remaining, expired, ok := room.countdown.Tick(gen)
	if !ok {
		return
	}
	c.broadcaster.Broadcast(room.code, SyncTimer{RemainingTimeMs: remaining.Milliseconds()})
	if !expired {
		return
	}

	log.Debug().Str("room_code", room.code).Int("questions_asked", room.questionsAsked).Msg("question expired")
	room.resolveUnanswered()
	c.advanceLocked(room)
}
