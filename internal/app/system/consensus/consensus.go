// internal/app/system/consensus/consensus.go

// Package consensus decides when a work package's classification is
// complete: whether enough opinions exist, whether they agree, which
// approvals high-tier participation requires, and the resulting tier.
//
// The decision logic is pure and works on a Snapshot loaded by the engine;
// readiness and tier are always derived from the authoritative opinion set
// on read, never cached.
package consensus

import (
	"fmt"

	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Obligation message forms. MsgApproveRole is completed with a role
// display name, for example "Referee".
const (
	MsgInvestigatorNeeded = "An Investigator still needs to classify this Work Package."
	MsgRefereeNeeded      = "A Referee needs to be added to this Work Package."
	MsgRefereeClassify    = "A Referee still needs to classify this Work Package."
	msgDPRClassifyFmt     = "A Data Provider Representative for dataset %s still needs to classify this Work Package."
	msgApproveRoleFmt     = "Each Data Provider Representative for this Work Package needs to approve the %s."
)

// MsgDPRClassify builds the per-dataset obligation message.
func MsgDPRClassify(datasetName string) string {
	return fmt.Sprintf(msgDPRClassifyFmt, datasetName)
}

// MsgApproveRole builds the approval obligation message for a role.
func MsgApproveRole(role string) string {
	return fmt.Sprintf(msgApproveRoleFmt, models.RoleDisplayName(role))
}

// Participant is a work-package participant as the decision logic sees it.
type Participant struct {
	WPParticipationID primitive.ObjectID
	ParticipationID   primitive.ObjectID
	UserID            primitive.ObjectID
	Role              string
}

// DatasetRef is a work-package dataset together with its per-project data
// provider representative.
type DatasetRef struct {
	ID               primitive.ObjectID
	Name             string
	RepresentativeID primitive.ObjectID
}

// Snapshot is everything the decision rules consume, loaded in one
// transaction so concurrent mutations cannot close a work package at an
// inconsistent tier.
type Snapshot struct {
	WorkPackage  models.WorkPackage
	Datasets     []DatasetRef
	Participants []Participant
	Opinions     []models.ClassificationOpinion
	Approvals    []models.WorkPackageParticipationApproval
}

// MaxDPRTier returns the highest tier among data provider representative
// opinions, or -1 when there are none.
func (s *Snapshot) MaxDPRTier() int {
	max := -1
	for _, o := range s.Opinions {
		if o.RoleSnapshot == models.RoleDataProviderRepresentative && o.Tier > max {
			max = o.Tier
		}
	}
	return max
}

// RefereeRequired reports whether an independent referee opinion is needed:
// any DPR opinion so far at tier 2 or above.
func (s *Snapshot) RefereeRequired() bool {
	return s.MaxDPRTier() >= 2
}

// ApprovalRuleActive reports whether the tier-dependent approval rule is in
// force: any DPR opinion at tier 3 or above.
func (s *Snapshot) ApprovalRuleActive() bool {
	return s.MaxDPRTier() >= 3
}

// dprParticipants returns the current participants holding the data
// provider representative role.
func (s *Snapshot) dprParticipants() []Participant {
	var out []Participant
	for _, p := range s.Participants {
		if p.Role == models.RoleDataProviderRepresentative {
			out = append(out, p)
		}
	}
	return out
}

// representedDatasets returns the datasets a representative user represents
// on this work package.
func (s *Snapshot) representedDatasets(userID primitive.ObjectID) []DatasetRef {
	var out []DatasetRef
	for _, d := range s.Datasets {
		if d.RepresentativeID == userID {
			out = append(out, d)
		}
	}
	return out
}

func (s *Snapshot) hasApproval(wpParticipationID, datasetID, approverID primitive.ObjectID) bool {
	for _, a := range s.Approvals {
		if a.WorkPackageParticipationID == wpParticipationID &&
			a.DatasetID == datasetID &&
			a.ApproverID == approverID {
			return true
		}
	}
	return false
}

// IsApproved reports whether a participant is authorised for this work
// package under the approval rule. Project managers, investigators, and
// data provider representatives are approved by default. Everyone else
// needs an approval from every DPR on the work package for every dataset
// that DPR represents. With no DPR participants the check is vacuously
// true.
//
// When a representative is replaced for a dataset, existing approvals no
// longer match the new representative, so re-approval is required.
func (s *Snapshot) IsApproved(p Participant) bool {
	if models.ApprovedByDefault(p.Role) {
		return true
	}
	for _, dpr := range s.dprParticipants() {
		for _, d := range s.representedDatasets(dpr.UserID) {
			if !s.hasApproval(p.WPParticipationID, d.ID, dpr.UserID) {
				return false
			}
		}
	}
	return true
}

// participantByUser finds the current participant for a user, if any.
func (s *Snapshot) participantByUser(userID primitive.ObjectID) (Participant, bool) {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// opinionCounts reports whether an opinion counts toward readiness and
// agreement. While the approval rule is active, an opinion from a
// non-approved-role classifier counts only once the classifier is approved.
// The role snapshot is authoritative: a role change or a deleted
// participation never invalidates a recorded opinion whose snapshot role is
// approved by default.
func (s *Snapshot) opinionCounts(o models.ClassificationOpinion) bool {
	if !s.ApprovalRuleActive() {
		return true
	}
	if models.ApprovedByDefault(o.RoleSnapshot) {
		return true
	}
	p, ok := s.participantByUser(o.ClassifierID)
	if !ok {
		// The participation is gone; with the approval rule active an
		// unapprovable opinion cannot count.
		return false
	}
	return s.IsApproved(p)
}

// CountedOpinions returns the opinions that participate in readiness and
// agreement.
func (s *Snapshot) CountedOpinions() []models.ClassificationOpinion {
	var out []models.ClassificationOpinion
	for _, o := range s.Opinions {
		if s.opinionCounts(o) {
			out = append(out, o)
		}
	}
	return out
}

// MissingRequirements returns the human-readable obligations still standing
// between this work package and closure. An empty list means ready.
func (s *Snapshot) MissingRequirements() []string {
	var missing []string

	counted := s.CountedOpinions()
	hasCounted := func(pred func(models.ClassificationOpinion) bool) bool {
		for _, o := range counted {
			if pred(o) {
				return true
			}
		}
		return false
	}

	// Always exactly one investigator opinion.
	if !hasCounted(func(o models.ClassificationOpinion) bool {
		return o.RoleSnapshot == models.RoleInvestigator
	}) {
		missing = append(missing, MsgInvestigatorNeeded)
	}

	// One DPR opinion per dataset, from the dataset's current
	// representative and covering that dataset.
	for _, d := range s.Datasets {
		d := d
		if !hasCounted(func(o models.ClassificationOpinion) bool {
			if o.RoleSnapshot != models.RoleDataProviderRepresentative || o.ClassifierID != d.RepresentativeID {
				return false
			}
			for _, id := range o.DatasetIDs {
				if id == d.ID {
					return true
				}
			}
			return false
		}) {
			missing = append(missing, MsgDPRClassify(d.Name))
		}
	}

	// A referee opinion once any DPR opinion reaches tier 2.
	if s.RefereeRequired() {
		missing = append(missing, s.refereeObligations(counted)...)
	}

	return missing
}

// refereeObligations works out which referee obligation applies: no referee
// participant at all, a referee blocked on approvals, or a referee who has
// not classified yet.
func (s *Snapshot) refereeObligations(counted []models.ClassificationOpinion) []string {
	var referees []Participant
	for _, p := range s.Participants {
		if p.Role == models.RoleReferee {
			referees = append(referees, p)
		}
	}
	if len(referees) == 0 {
		return []string{MsgRefereeNeeded}
	}
	for _, o := range counted {
		if o.RoleSnapshot == models.RoleReferee {
			return nil
		}
	}
	// Not satisfied: distinguish "blocked on approval" from "has not
	// classified".
	for _, o := range s.Opinions {
		if o.RoleSnapshot != models.RoleReferee {
			continue
		}
		if p, ok := s.participantByUser(o.ClassifierID); ok && !s.IsApproved(p) {
			return []string{MsgApproveRole(models.RoleReferee)}
		}
	}
	return []string{MsgRefereeClassify}
}

// TierConflict reports whether the counted opinions disagree on the tier.
func (s *Snapshot) TierConflict() bool {
	counted := s.CountedOpinions()
	for i := 1; i < len(counted); i++ {
		if counted[i].Tier != counted[0].Tier {
			return true
		}
	}
	return false
}

// AgreedTier returns the common tier of the counted opinions. It reports
// false when there are no counted opinions or they disagree.
func (s *Snapshot) AgreedTier() (int, bool) {
	counted := s.CountedOpinions()
	if len(counted) == 0 || s.TierConflict() {
		return 0, false
	}
	return counted[0].Tier, true
}

// ParticipantApproval pairs a participant with their derived approval
// status, for the participants-with-approval query surface.
type ParticipantApproval struct {
	Participant Participant
	Approved    bool
}

// ParticipantsWithApproval returns every participant together with whether
// they are currently authorised under the approval rule. When the rule is
// not active everyone is approved.
func (s *Snapshot) ParticipantsWithApproval() []ParticipantApproval {
	out := make([]ParticipantApproval, 0, len(s.Participants))
	for _, p := range s.Participants {
		approved := true
		if s.ApprovalRuleActive() {
			approved = s.IsApproved(p)
		}
		out = append(out, ParticipantApproval{Participant: p, Approved: approved})
	}
	return out
}
