// internal/app/system/walk/walk.go

// Package walk models one classifier's in-progress traversal of a question
// graph: the ordered list of visited (question, answer) entries plus the
// current question. All state lives in the Walk value; persistence of
// finished walks is the opinion store's concern.
package walk

import (
	"fmt"

	"github.com/dalemusser/tierhub/internal/app/system/qgraph"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IllegalJumpError means a go-back targeted a question that is not on the
// recorded walk. Recoverable by restarting or jumping to a walked question.
type IllegalJumpError struct {
	Question string
}

func (e *IllegalJumpError) Error() string {
	return fmt.Sprintf("question %q is not on the recorded walk", e.Question)
}

// Step is one visited question together with the answer given.
type Step struct {
	Question *models.ClassificationQuestion
	Answer   bool
}

// Walk is a traversal in progress. Exactly one of Current and Tier is set:
// Current while the walk has questions left, Tier once it reached a
// terminal.
type Walk struct {
	graph   *qgraph.Graph
	steps   []Step
	current *models.ClassificationQuestion
	tier    *int
}

// Start begins a walk at the graph's entry question.
func Start(g *qgraph.Graph) (*Walk, error) {
	entry, err := g.Entry()
	if err != nil {
		return nil, err
	}
	return &Walk{graph: g, current: entry}, nil
}

// Current returns the question awaiting an answer, or nil once finished.
func (w *Walk) Current() *models.ClassificationQuestion { return w.current }

// Tier returns the terminal tier, or nil while the walk is in progress.
func (w *Walk) Tier() *int { return w.tier }

// Finished reports whether the walk reached a terminal tier.
func (w *Walk) Finished() bool { return w.tier != nil }

// Steps returns the visited entries in walk order.
func (w *Walk) Steps() []Step { return w.steps }

// Answer records the answer to the current question and advances. It
// returns the next question, or the terminal tier when the edge ends the
// walk.
func (w *Walk) Answer(yes bool) (*models.ClassificationQuestion, *int, error) {
	if w.current == nil {
		return nil, nil, fmt.Errorf("walk already finished")
	}
	next, tier, err := w.graph.Next(w.current, yes)
	if err != nil {
		return nil, nil, err
	}
	w.steps = append(w.steps, Step{Question: w.current, Answer: yes})
	w.current = next
	w.tier = tier
	return next, tier, nil
}

// GoBack truncates the walk to the position at which target was current,
// discarding the answers given from that point on. If target is not on the
// recorded walk it fails with IllegalJumpError, unless repair is set, in
// which case the walk restarts at target with an empty history. Repair mode
// exists for resuming walks over a graph whose text has changed since the
// answers were recorded.
func (w *Walk) GoBack(target primitive.ObjectID, repair bool) error {
	for i, step := range w.steps {
		if step.Question.ID == target {
			w.current = step.Question
			w.steps = w.steps[:i]
			w.tier = nil
			return nil
		}
	}
	q, ok := w.graph.ByID(target)
	if !ok {
		return &IllegalJumpError{Question: target.Hex()}
	}
	if !repair {
		return &IllegalJumpError{Question: q.Name}
	}
	w.steps = nil
	w.current = q
	w.tier = nil
	return nil
}

// Restart clears the walk and returns to the entry question.
func (w *Walk) Restart() error {
	entry, err := w.graph.Entry()
	if err != nil {
		return err
	}
	w.steps = nil
	w.current = entry
	w.tier = nil
	return nil
}

// Answers projects the walk into the persisted answer form, pinning each
// step to the question version that was current when it was answered.
func (w *Walk) Answers() []models.OpinionAnswer {
	answers := make([]models.OpinionAnswer, 0, len(w.steps))
	for i, step := range w.steps {
		answers = append(answers, models.OpinionAnswer{
			Order:      i,
			QuestionID: step.Question.ID,
			VersionID:  step.Question.VersionID,
			Answer:     step.Answer,
		})
	}
	return answers
}
