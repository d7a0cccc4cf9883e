// internal/app/system/qgraph/import.go
package qgraph

import (
	"fmt"
	"time"

	"github.com/dalemusser/tierhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"
)

// ImportQuestion is one question record of the import format. Exactly one
// of YesQuestion/YesTier must be present, and likewise for the no edge.
type ImportQuestion struct {
	Name     string   `yaml:"name"`
	Question string   `yaml:"question"` // rich text (HTML)
	Guidance []string `yaml:"guidance,omitempty"`

	YesQuestion string `yaml:"yes_question,omitempty"`
	YesTier     *int   `yaml:"yes_tier,omitempty"`
	NoQuestion  string `yaml:"no_question,omitempty"`
	NoTier      *int   `yaml:"no_tier,omitempty"`
}

// ImportGuidance is one guidance record of the import format.
type ImportGuidance struct {
	Name     string   `yaml:"name"`
	Guidance string   `yaml:"guidance"` // rich text (HTML)
	Links    []string `yaml:"links,omitempty"`
}

// ImportFile is a complete question-set import: an ordered list of question
// records plus guidance. Loading is idempotent against name.
type ImportFile struct {
	Set       string           `yaml:"set"`
	Questions []ImportQuestion `yaml:"questions"`
	Guidance  []ImportGuidance `yaml:"guidance,omitempty"`
}

// ParseImport decodes and validates an import file. Rich-text bodies are
// sanitized here so nothing unsafe ever reaches the store. Validation
// covers name uniqueness, the edge policy, target resolution, guidance
// references, and termination of the guidance link closure.
func ParseImport(data []byte) (*ImportFile, error) {
	var f ImportFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question set import: %w", err)
	}
	if f.Set == "" {
		return nil, graphErrorf("import file does not name a question set")
	}
	if len(f.Questions) == 0 {
		return nil, graphErrorf("import file has no questions")
	}

	names := make(map[string]bool, len(f.Questions))
	for i := range f.Questions {
		q := &f.Questions[i]
		if q.Name == "" {
			return nil, graphErrorf("question at position %d has no name", i)
		}
		if names[q.Name] {
			return nil, graphErrorf("duplicate question name %q", q.Name)
		}
		names[q.Name] = true
		q.Question = htmlsanitize.Sanitize(q.Question)
	}

	guidance := make(map[string][]string, len(f.Guidance))
	for i := range f.Guidance {
		gd := &f.Guidance[i]
		if gd.Name == "" {
			return nil, graphErrorf("guidance at position %d has no name", i)
		}
		if _, dup := guidance[gd.Name]; dup {
			return nil, graphErrorf("duplicate guidance name %q", gd.Name)
		}
		guidance[gd.Name] = gd.Links
		gd.Guidance = htmlsanitize.Sanitize(gd.Guidance)
	}

	for _, q := range f.Questions {
		if err := checkImportEdge(q.Name, "yes", q.YesQuestion, q.YesTier, names); err != nil {
			return nil, err
		}
		if err := checkImportEdge(q.Name, "no", q.NoQuestion, q.NoTier, names); err != nil {
			return nil, err
		}
		for _, ref := range q.Guidance {
			if _, ok := guidance[ref]; !ok {
				return nil, graphErrorf("question %q links unknown guidance %q", q.Name, ref)
			}
		}
	}

	if err := checkGuidanceClosure(guidance); err != nil {
		return nil, err
	}

	// Build a throwaway graph so structural rules (unique entry, no cycles)
	// fail at import time, before anything is persisted.
	g, err := f.BuildGraph()
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func checkImportEdge(name, edge, target string, tier *int, names map[string]bool) error {
	if (target == "") == (tier == nil) {
		return graphErrorf("question %q: exactly one of %s_question and %s_tier must be set", name, edge, edge)
	}
	if target != "" && !names[target] {
		return graphErrorf("question %q: %s_question %q not in import", name, edge, target)
	}
	if tier != nil && !models.ValidTier(*tier) {
		return graphErrorf("question %q: %s_tier %d outside {0..4}", name, edge, *tier)
	}
	return nil
}

// checkGuidanceClosure verifies that following guidance links always
// terminates.
func checkGuidanceClosure(guidance map[string][]string) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(guidance))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return graphErrorf("guidance links do not terminate: cycle through %q", name)
		}
		state[name] = visiting
		for _, link := range guidance[name] {
			if _, ok := guidance[link]; !ok {
				return graphErrorf("guidance %q links unknown guidance %q", name, link)
			}
			if err := visit(link); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for name := range guidance {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// BuildGraph materialises the import records into an in-memory Graph with
// fresh ids. The store layer does its own materialisation against existing
// documents; this one exists for validation and for the offline CLI.
func (f *ImportFile) BuildGraph() (*Graph, error) {
	setID := primitive.NewObjectID()
	now := time.Now().UTC()

	ids := make(map[string]primitive.ObjectID, len(f.Questions))
	for _, q := range f.Questions {
		ids[q.Name] = primitive.NewObjectID()
	}

	questions := make([]models.ClassificationQuestion, 0, len(f.Questions))
	for _, q := range f.Questions {
		mq := models.ClassificationQuestion{
			ID:            ids[q.Name],
			SetID:         setID,
			Name:          q.Name,
			Body:          q.Question,
			GuidanceNames: q.Guidance,
			VersionID:     1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if q.YesQuestion != "" {
			id := ids[q.YesQuestion]
			mq.YesQuestionID = &id
		} else {
			mq.YesTier = q.YesTier
		}
		if q.NoQuestion != "" {
			id := ids[q.NoQuestion]
			mq.NoQuestionID = &id
		} else {
			mq.NoTier = q.NoTier
		}
		questions = append(questions, mq)
	}
	return New(setID, questions)
}
