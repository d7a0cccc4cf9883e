package tierpolicy

import (
	"sort"
	"testing"

	"github.com/dalemusser/tierhub/internal/domain/models"
)

func TestLoad_TableIsTotal(t *testing.T) {
	table := Load()

	for tier := models.TierMin; tier <= models.TierMax; tier++ {
		tier := tier
		got := table.PoliciesFor(&tier)
		if len(got) != len(Groups) {
			t.Errorf("tier %d: got %d policies, want %d", tier, len(got), len(Groups))
		}
		seen := make(map[string]bool, len(got))
		for _, p := range got {
			if p.Tier != tier {
				t.Errorf("tier %d: policy %q carries tier %d", tier, p.Name, p.Tier)
			}
			if p.Name == "" {
				t.Errorf("tier %d group %q: empty policy name", tier, p.Group)
			}
			if seen[p.Group] {
				t.Errorf("tier %d: group %q listed twice", tier, p.Group)
			}
			seen[p.Group] = true
		}
		if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Group < got[j].Group }) {
			t.Errorf("tier %d: policies not in group order", tier)
		}
	}
}

func TestPoliciesFor_NilTier(t *testing.T) {
	if got := Load().PoliciesFor(nil); len(got) != 0 {
		t.Errorf("expected no policies for an unclassified work package, got %d", len(got))
	}
}

func TestOfGroup(t *testing.T) {
	table := Load()
	if name := table.OfGroup(0, "connection"); name == "" {
		t.Error("expected a connection policy for tier 0")
	}
	if name := table.OfGroup(0, "no_such_group"); name != "" {
		t.Errorf("expected empty name for unknown group, got %q", name)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"tier out of range", `
policies:
  - {tier: 5, group: connection, name: p, description: d}
`},
		{"unknown group", `
policies:
  - {tier: 0, group: mystery, name: p, description: d}
`},
		{"duplicate group for tier", `
policies:
  - {tier: 0, group: connection, name: p, description: d}
  - {tier: 0, group: connection, name: q, description: d}
`},
		{"incomplete table", `
policies:
  - {tier: 0, group: connection, name: p, description: d}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.in)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
