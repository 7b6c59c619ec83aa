// Package question builds timed arithmetic questions with four distinct choices.
package question

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/magnusohlin/numba/internal/domain"
)

const (
	// DefaultTimeLimit is the per-question countdown.
	DefaultTimeLimit = 10 * time.Second

	choiceCount = 4
	// maxDistractorAttempts bounds the plausible-candidate search per distractor.
	maxDistractorAttempts = 20
	// maxOperandAttempts bounds operand regeneration for constrained operations.
	maxOperandAttempts = 32
)

var basicOperations = []domain.Operation{
	domain.OpAddition,
	domain.OpSubtraction,
	domain.OpMultiplication,
	domain.OpDivision,
}

// Generator is safe for concurrent use; rooms share one instance.
type Generator struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	timeLimit time.Duration
}

// NewGenerator seeds from the wall clock.
func NewGenerator(timeLimit time.Duration) *Generator {
	return NewGeneratorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())), timeLimit)
}

// NewGeneratorWithRand is used by tests for reproducible sequences.
func NewGeneratorWithRand(rnd *rand.Rand, timeLimit time.Duration) *Generator {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	return &Generator{rnd: rnd, timeLimit: timeLimit}
}

// TimeLimit returns the countdown length applied to every question.
func (g *Generator) TimeLimit() time.Duration {
	return g.timeLimit
}

// Generate returns a question for op at the given difficulty. Unknown
// operations fall back to addition, matching the client's default.
func (g *Generator) Generate(op domain.Operation, level domain.Difficulty) domain.Question {
	g.mu.Lock()
	defer g.mu.Unlock()

	if op == domain.OpMixed {
		op = basicOperations[g.rnd.Intn(len(basicOperations))]
	}
	if !op.Valid() {
		op = domain.OpAddition
	}

	a, b, answer, symbol := g.operands(op, level)
	distractors, _ := pickDistractors(g.rnd, op, level, answer)

	choices := make([]int, 0, choiceCount)
	choices = append(choices, answer)
	choices = append(choices, distractors...)
	g.rnd.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})

	return domain.Question{
		Prompt:      fmt.Sprintf("%d %s %d", a, symbol, b),
		Operation:   op,
		Answer:      answer,
		Choices:     choices,
		TimeLimitMs: g.timeLimit.Milliseconds(),
	}
}

func (g *Generator) operands(op domain.Operation, level domain.Difficulty) (a, b, answer int, symbol string) {
	hi := operandMax(level)
	switch op {
	case domain.OpSubtraction:
		for i := 0; i < maxOperandAttempts; i++ {
			a, b = g.draw(hi), g.draw(hi)
			if a != b && a-b >= 0 {
				return a, b, a - b, "-"
			}
		}
		// Order the last draw so the result stays non-negative.
		if a < b {
			a, b = b, a
		}
		if a == b {
			if a == hi {
				b = a - 1
			} else {
				a = b + 1
			}
		}
		return a, b, a - b, "-"
	case domain.OpMultiplication:
		a, b = g.draw(hi), g.draw(hi)
		return a, b, a * b, "×"
	case domain.OpDivision:
		divisor := g.draw(hi)
		quotient := g.draw(hi)
		return divisor * quotient, divisor, quotient, "/"
	default:
		for {
			a, b = g.draw(hi), g.draw(hi)
			if a != 0 || b != 0 {
				return a, b, a + b, "+"
			}
		}
	}
}

// draw returns a uniform integer in [1, hi]; zero never occurs.
func (g *Generator) draw(hi int) int {
	return g.rnd.Intn(hi) + 1
}

func operandMax(level domain.Difficulty) int {
	if level == domain.DifficultyHard {
		return 100
	}
	return 10
}

func baseRange(level domain.Difficulty) int {
	if level == domain.DifficultyHard {
		return 10
	}
	return 2
}

// pickDistractors returns three distinct positive values different from
// answer, plus the number of candidates drawn. Each distractor gets at most
// maxDistractorAttempts plausible draws before the operand-range fallback.
func pickDistractors(rnd *rand.Rand, op domain.Operation, level domain.Difficulty, answer int) ([]int, int) {
	hi := operandMax(level)
	base := baseRange(level)
	adjusted := maxInt(answer/2, base, answer+1)

	chosen := make([]int, 0, choiceCount-1)
	accept := func(v int) bool {
		if v < 1 || v == answer {
			return false
		}
		for _, c := range chosen {
			if c == v {
				return false
			}
		}
		return true
	}

	attempts := 0
	for len(chosen) < choiceCount-1 {
		found := false
		for i := 0; i < maxDistractorAttempts; i++ {
			attempts++
			v := candidate(rnd, op, answer, adjusted, base, hi)
			if accept(v) {
				chosen = append(chosen, v)
				found = true
				break
			}
		}
		if found {
			continue
		}
		// Scan the operand range from a random start; [1, hi] always holds
		// at least 10 values, so a free one exists.
		start := rnd.Intn(hi)
		for i := 0; i < hi; i++ {
			attempts++
			v := (start+i)%hi + 1
			if accept(v) {
				chosen = append(chosen, v)
				break
			}
		}
	}
	return chosen, attempts
}

func candidate(rnd *rand.Rand, op domain.Operation, answer, adjusted, base, hi int) int {
	switch op {
	case domain.OpMultiplication:
		offset := float64(rnd.Intn(2*base+1) - base)
		return int(math.Round(float64(answer) * (1 + offset/10)))
	case domain.OpDivision:
		return rnd.Intn(hi) + 1 + rnd.Intn(2*base+1) - base
	default:
		if answer <= 1 {
			// Only upward offsets; downward ones are never positive and distinct.
			return answer + rnd.Intn(adjusted+1) + 1
		}
		return answer + rnd.Intn(2*adjusted+1) - adjusted
	}
}

func maxInt(first int, rest ...int) int {
	m := first
	for _, v := range rest {
		if v > m {
			m = v
		}
	}
	return m
}
