// internal/app/system/tierpolicy/tierpolicy.go

// Package tierpolicy projects a sensitivity tier onto the fixed set of
// tier-indexed policy assignments. The table is an embedded resource; the
// core emits policies, it never applies them.
package tierpolicy

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/dalemusser/tierhub/internal/domain/models"
	"gopkg.in/yaml.v3"
)

//go:embed policies.yaml
var policiesYAML []byte

// Groups is the closed set of policy groups. Every tier selects exactly
// one policy from each group.
var Groups = []string{
	"connection", "copy", "egress", "device", "physical", "user",
	"software", "mirror", "inbound", "outbound", "internet", "ingress",
	"tier", "ref_class", "ref_reclass",
}

type policyRow struct {
	Tier        int    `yaml:"tier"`
	Group       string `yaml:"group"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type policyFile struct {
	Policies []policyRow `yaml:"policies"`
}

// Table is the parsed tier→policy mapping.
type Table struct {
	byTier map[int]map[string]policyRow
	rows   []policyRow
}

// Parse decodes a policy table and verifies it is total: every tier in
// {0..4} defines exactly one policy per group, and no unknown group
// appears.
func Parse(data []byte) (*Table, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tier policy table: %w", err)
	}
	known := make(map[string]bool, len(Groups))
	for _, g := range Groups {
		known[g] = true
	}
	t := &Table{byTier: make(map[int]map[string]policyRow), rows: f.Policies}
	for _, row := range f.Policies {
		if !models.ValidTier(row.Tier) {
			return nil, fmt.Errorf("policy %q: tier %d outside {0..4}", row.Name, row.Tier)
		}
		if !known[row.Group] {
			return nil, fmt.Errorf("policy %q: unknown group %q", row.Name, row.Group)
		}
		byGroup := t.byTier[row.Tier]
		if byGroup == nil {
			byGroup = make(map[string]policyRow, len(Groups))
			t.byTier[row.Tier] = byGroup
		}
		if _, dup := byGroup[row.Group]; dup {
			return nil, fmt.Errorf("tier %d defines group %q twice", row.Tier, row.Group)
		}
		byGroup[row.Group] = row
	}
	for tier := models.TierMin; tier <= models.TierMax; tier++ {
		for _, g := range Groups {
			if _, ok := t.byTier[tier][g]; !ok {
				return nil, fmt.Errorf("tier %d has no policy for group %q", tier, g)
			}
		}
	}
	return t, nil
}

// Load parses the embedded table. It panics on a malformed resource, which
// can only mean a build-time defect.
func Load() *Table {
	t, err := Parse(policiesYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// PoliciesFor returns the policy assignments for a tier, one per group in
// group-name order. A nil tier (an unclassified work package) yields an
// empty list.
func (t *Table) PoliciesFor(tier *int) []models.PolicyAssignment {
	if tier == nil {
		return nil
	}
	byGroup := t.byTier[*tier]
	groups := make([]string, len(Groups))
	copy(groups, Groups)
	sort.Strings(groups)

	out := make([]models.PolicyAssignment, 0, len(groups))
	for _, g := range groups {
		row := byGroup[g]
		out = append(out, models.PolicyAssignment{
			Tier:        row.Tier,
			Group:       row.Group,
			Name:        row.Name,
			Description: row.Description,
		})
	}
	return out
}

// OfGroup returns the policy name a tier selects for one group, or "" for
// an unknown group.
func (t *Table) OfGroup(tier int, group string) string {
	row, ok := t.byTier[tier][group]
	if !ok {
		return ""
	}
	return row.Name
}

// Rows returns every table row as persistable documents, used to seed the
// policies collection at startup.
func (t *Table) Rows() []models.TierPolicy {
	out := make([]models.TierPolicy, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.TierPolicy{
			Tier:        row.Tier,
			Name:        row.Name,
			Group:       row.Group,
			Description: row.Description,
		})
	}
	return out
}
