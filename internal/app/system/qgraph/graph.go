// internal/app/system/qgraph/graph.go

// Package qgraph models a classification question set as a small directed
// acyclic graph held in memory. Nodes carry stable string names; yes/no
// edges point at either another question or a terminal tier. The store
// layer persists questions and their append-only version history; this
// package owns the structural rules.
package qgraph

import (
	"errors"
	"fmt"

	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GraphError is malformed graph data: a bad edge, a missing target, or an
// ambiguous entry question. Fatal at import time, soft at read time.
type GraphError struct {
	Msg string
}

func (e *GraphError) Error() string { return e.Msg }

func graphErrorf(format string, args ...any) error {
	return &GraphError{Msg: fmt.Sprintf(format, args...)}
}

// CycleError means the non-hidden questions of a set contain a cycle, so
// some path can never terminate in a tier.
type CycleError struct {
	Question string // a question on the cycle
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("question graph contains a cycle through %q", e.Question)
}

// ErrVersionNotFound means a recorded (question, version) pair could not be
// retrieved. Callers surface it as "some recorded answers could not be
// retrieved" and force re-classification from the affected point.
var ErrVersionNotFound = errors.New("question version not found")

// Graph is an in-memory view of one question set with targets resolved
// eagerly. Hidden questions stay in the graph so historical walks resolve,
// but they are excluded from Entry and Ordered.
type Graph struct {
	setID  primitive.ObjectID
	byID   map[primitive.ObjectID]*models.ClassificationQuestion
	byName map[string]*models.ClassificationQuestion
	all    []*models.ClassificationQuestion
}

// New builds a Graph from a question set snapshot. It enforces the edge
// policy: exactly one of yes_question/yes_tier set per question, and the
// same for the no edge, with every question target present in the set.
func New(setID primitive.ObjectID, questions []models.ClassificationQuestion) (*Graph, error) {
	g := &Graph{
		setID:  setID,
		byID:   make(map[primitive.ObjectID]*models.ClassificationQuestion, len(questions)),
		byName: make(map[string]*models.ClassificationQuestion, len(questions)),
	}
	for i := range questions {
		q := &questions[i]
		if q.SetID != setID {
			return nil, graphErrorf("question %q belongs to a different set", q.Name)
		}
		if _, dup := g.byName[q.Name]; dup {
			return nil, graphErrorf("duplicate question name %q", q.Name)
		}
		g.byID[q.ID] = q
		g.byName[q.Name] = q
		g.all = append(g.all, q)
	}
	for _, q := range g.all {
		if err := checkEdge(q.Name, "yes", q.YesQuestionID, q.YesTier); err != nil {
			return nil, err
		}
		if err := checkEdge(q.Name, "no", q.NoQuestionID, q.NoTier); err != nil {
			return nil, err
		}
		for _, target := range []*primitive.ObjectID{q.YesQuestionID, q.NoQuestionID} {
			if target != nil {
				if _, ok := g.byID[*target]; !ok {
					return nil, graphErrorf("question %q targets a question outside the set", q.Name)
				}
			}
		}
	}
	return g, nil
}

func checkEdge(name, edge string, target *primitive.ObjectID, tier *int) error {
	if (target == nil) == (tier == nil) {
		return graphErrorf("question %q: exactly one of %s_question and %s_tier must be set", name, edge, edge)
	}
	if tier != nil && !models.ValidTier(*tier) {
		return graphErrorf("question %q: %s_tier %d outside {0..4}", name, edge, *tier)
	}
	return nil
}

// SetID returns the id of the question set this graph was built from.
func (g *Graph) SetID() primitive.ObjectID { return g.setID }

// ByID looks up a question (hidden or not) by id.
func (g *Graph) ByID(id primitive.ObjectID) (*models.ClassificationQuestion, bool) {
	q, ok := g.byID[id]
	return q, ok
}

// ByName looks up a question (hidden or not) by its stable name.
func (g *Graph) ByName(name string) (*models.ClassificationQuestion, bool) {
	q, ok := g.byName[name]
	return q, ok
}

// Entry returns the unique non-hidden question with no incoming edges from
// other non-hidden questions. Zero or more than one candidate is a
// GraphError.
func (g *Graph) Entry() (*models.ClassificationQuestion, error) {
	incoming := make(map[primitive.ObjectID]int)
	for _, q := range g.all {
		if q.Hidden {
			continue
		}
		if q.YesQuestionID != nil {
			incoming[*q.YesQuestionID]++
		}
		if q.NoQuestionID != nil {
			incoming[*q.NoQuestionID]++
		}
	}
	var entry *models.ClassificationQuestion
	for _, q := range g.all {
		if q.Hidden || incoming[q.ID] != 0 {
			continue
		}
		if entry != nil {
			return nil, graphErrorf("question set has more than one entry question (%q and %q)", entry.Name, q.Name)
		}
		entry = q
	}
	if entry == nil {
		return nil, graphErrorf("question set has no entry question")
	}
	return entry, nil
}

// Ordered returns the non-hidden questions in a topological order, so a
// question always precedes its targets. A cycle yields a CycleError.
func (g *Graph) Ordered() ([]*models.ClassificationQuestion, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[primitive.ObjectID]int, len(g.all))
	var reverse []*models.ClassificationQuestion

	var visit func(q *models.ClassificationQuestion) error
	visit = func(q *models.ClassificationQuestion) error {
		switch state[q.ID] {
		case done:
			return nil
		case visiting:
			return &CycleError{Question: q.Name}
		}
		state[q.ID] = visiting
		for _, target := range []*primitive.ObjectID{q.YesQuestionID, q.NoQuestionID} {
			if target == nil {
				continue
			}
			next := g.byID[*target]
			if next.Hidden {
				continue
			}
			if err := visit(next); err != nil {
				return err
			}
		}
		state[q.ID] = done
		reverse = append(reverse, q)
		return nil
	}

	for _, q := range g.all {
		if q.Hidden {
			continue
		}
		if err := visit(q); err != nil {
			return nil, err
		}
	}

	ordered := make([]*models.ClassificationQuestion, 0, len(reverse))
	for i := len(reverse) - 1; i >= 0; i-- {
		ordered = append(ordered, reverse[i])
	}
	return ordered, nil
}

// Next follows one edge from q. It returns either the next question or the
// terminal tier.
func (g *Graph) Next(q *models.ClassificationQuestion, answer bool) (*models.ClassificationQuestion, *int, error) {
	target, tier := q.NoQuestionID, q.NoTier
	if answer {
		target, tier = q.YesQuestionID, q.YesTier
	}
	if tier != nil {
		t := *tier
		return nil, &t, nil
	}
	if target == nil {
		return nil, nil, graphErrorf("question %q has no target for this answer", q.Name)
	}
	next, ok := g.byID[*target]
	if !ok {
		return nil, nil, graphErrorf("question %q targets a question outside the set", q.Name)
	}
	return next, nil, nil
}

// Validate checks the whole structure: edge policy (done in New), unique
// entry question, and acyclicity. Import uses it to fail fast before
// anything is persisted.
func (g *Graph) Validate() error {
	if _, err := g.Entry(); err != nil {
		return err
	}
	if _, err := g.Ordered(); err != nil {
		return err
	}
	return nil
}
