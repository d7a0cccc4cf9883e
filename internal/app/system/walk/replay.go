// internal/app/system/walk/replay.go
package walk

import (
	"context"
	"fmt"

	"github.com/dalemusser/tierhub/internal/app/system/qgraph"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WalkMismatchError means a recorded answer sequence does not form a valid
// walk: an answer names the wrong question, the sequence stops short of a
// terminal, or it runs past one.
type WalkMismatchError struct {
	Msg string
}

func (e *WalkMismatchError) Error() string { return e.Msg }

func mismatchf(format string, args ...any) error {
	return &WalkMismatchError{Msg: fmt.Sprintf(format, args...)}
}

// VersionResolver retrieves historical question versions. The questions
// store implements it; tests use a map-backed resolver.
type VersionResolver interface {
	Version(ctx context.Context, questionID primitive.ObjectID, versionID int64) (models.QuestionVersion, error)
}

// Replay follows a recorded answer sequence under the historical graph: each
// step resolves the exact (question, version) pair recorded at answer time
// and follows that version's edge. It returns the terminal tier the
// sequence reaches.
//
// A resolver failure surfaces unwrapped qgraph.ErrVersionNotFound so
// callers can report that some recorded answers could not be retrieved; any
// inconsistency in the sequence itself is a WalkMismatchError. Replay is a
// pure function of the answers and the historical versions.
func Replay(ctx context.Context, resolver VersionResolver, answers []models.OpinionAnswer) (int, error) {
	if len(answers) == 0 {
		return 0, mismatchf("answer sequence is empty")
	}
	expected := answers[0].QuestionID
	for i, a := range answers {
		if a.QuestionID != expected {
			return 0, mismatchf("answer %d names an unexpected question", i)
		}
		v, err := resolver.Version(ctx, a.QuestionID, a.VersionID)
		if err != nil {
			return 0, fmt.Errorf("answer %d: %w", i, err)
		}
		target, tier := v.NoQuestionID, v.NoTier
		if a.Answer {
			target, tier = v.YesQuestionID, v.YesTier
		}
		if tier != nil {
			if i != len(answers)-1 {
				return 0, mismatchf("answer %d reaches a terminal tier before the sequence ends", i)
			}
			return *tier, nil
		}
		if target == nil {
			return 0, mismatchf("answer %d: recorded version has no target for this answer", i)
		}
		expected = *target
	}
	return 0, mismatchf("answer sequence stops before reaching a terminal tier")
}

// Resume rebuilds an in-progress walk from recorded answers against the
// current graph. Answers replay from the entry question; the first recorded
// answer whose question has changed since it was given (a different current
// version id) invalidates itself and everything after it, and the returned
// walk is positioned at that question.
//
// The second return value is the number of answers that survived. When it
// equals len(answers) and the walk finished, the recorded sequence is still
// fully valid.
func Resume(g *qgraph.Graph, answers []models.OpinionAnswer) (*Walk, int, error) {
	w, err := Start(g)
	if err != nil {
		return nil, 0, err
	}
	for i, a := range answers {
		cur := w.Current()
		if cur == nil {
			return nil, i, mismatchf("answer %d continues past a terminal tier", i)
		}
		if cur.ID != a.QuestionID || cur.VersionID != a.VersionID {
			// Question wording or wiring changed underneath the recorded
			// walk; everything from here on is invalidated.
			return w, i, nil
		}
		if _, _, err := w.Answer(a.Answer); err != nil {
			return nil, i, err
		}
	}
	return w, len(answers), nil
}
