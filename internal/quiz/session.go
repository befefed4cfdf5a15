// Package quiz implements the guided workout-finder flow: a fixed sequence
// of steps (goal, subcategory, time, level) where each step's choices are
// narrowed to values that still lead to at least one video, finishing with
// a recommendation drawn from the filtered set.
package quiz

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
)

// Step identifies the quiz question currently awaiting an answer.
type Step int

const (
	// StepGoal asks for the training goal.
	StepGoal Step = iota

	// StepSubcategory asks for the focus area within the goal.
	StepSubcategory

	// StepTime asks for the available session length.
	StepTime

	// StepLevel asks for the difficulty level.
	StepLevel

	// StepDone means every question has been answered.
	StepDone
)

// String returns the step's wire name.
func (s Step) String() string {
	switch s {
	case StepGoal:
		return "goal"
	case StepSubcategory:
		return "subcategory"
	case StepTime:
		return "time"
	case StepLevel:
		return "level"
	case StepDone:
		return "done"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// DefaultRecommendCount is how many videos a finished quiz suggests.
const DefaultRecommendCount = 3

// Session walks one visitor through the quiz. It is safe for concurrent
// use, though a session normally belongs to a single connection.
type Session struct {
	cat *catalog.Catalog

	mu      sync.Mutex
	step    Step
	answers catalog.Answers
}

// NewSession starts a quiz at the first step.
func NewSession(cat *catalog.Catalog) *Session {
	return &Session{cat: cat}
}

// Step returns the question currently awaiting an answer.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Answers returns the answers collected so far.
func (s *Session) Answers() catalog.Answers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers
}

// Options returns the selectable values for the current step. Every offered
// value is guaranteed to keep at least one video reachable.
func (s *Session) Options() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.optionsLocked()
}

func (s *Session) optionsLocked() []string {
	opts := s.cat.AvailableOptions(s.answers)
	switch s.step {
	case StepGoal:
		return opts.Goals
	case StepSubcategory:
		return opts.Subcategories
	case StepTime:
		return opts.Times
	case StepLevel:
		return opts.Levels
	default:
		return nil
	}
}

// Select records an answer for the current step and advances. The value
// must be one of [Session.Options]; otherwise the step does not advance
// and an error is returned.
func (s *Session) Select(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepDone {
		return fmt.Errorf("quiz: already complete")
	}

	valid := false
	for _, o := range s.optionsLocked() {
		if o == value {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("quiz: %q is not a valid choice for step %s", value, s.step)
	}

	switch s.step {
	case StepGoal:
		s.answers.Goal = value
	case StepSubcategory:
		s.answers.Subcategory = value
	case StepTime:
		s.answers.Time = value
	case StepLevel:
		s.answers.Level = value
	}
	s.step++
	return nil
}

// Back returns to the previous step, clearing its recorded answer. At the
// first step it is a no-op.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepGoal {
		return
	}
	s.step--
	switch s.step {
	case StepGoal:
		s.answers.Goal = ""
	case StepSubcategory:
		s.answers.Subcategory = ""
	case StepTime:
		s.answers.Time = ""
	case StepLevel:
		s.answers.Level = ""
	}
}

// Reset restarts the quiz from the first step.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = StepGoal
	s.answers = catalog.Answers{}
}

// Complete reports whether every question has been answered.
func (s *Session) Complete() bool {
	return s.Step() == StepDone
}

// Results returns up to [DefaultRecommendCount] videos for the finished
// quiz, or an error if questions remain. rng may be nil.
func (s *Session) Results(rng *rand.Rand) ([]catalog.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepDone {
		return nil, fmt.Errorf("quiz: step %s still awaiting an answer", s.step)
	}
	return s.cat.Recommend(s.answers, DefaultRecommendCount, rng), nil
}
