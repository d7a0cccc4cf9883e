package consensus

import (
	"testing"

	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// snapshotBuilder assembles Snapshot values without a database.
type snapshotBuilder struct {
	snap Snapshot
}

func newSnapshot() *snapshotBuilder {
	return &snapshotBuilder{snap: Snapshot{
		WorkPackage: models.WorkPackage{ID: primitive.NewObjectID(), State: models.StateUnderway},
	}}
}

func (b *snapshotBuilder) dataset(name string, repID primitive.ObjectID) DatasetRef {
	d := DatasetRef{ID: primitive.NewObjectID(), Name: name, RepresentativeID: repID}
	b.snap.Datasets = append(b.snap.Datasets, d)
	return d
}

func (b *snapshotBuilder) participant(role string) Participant {
	p := Participant{
		WPParticipationID: primitive.NewObjectID(),
		ParticipationID:   primitive.NewObjectID(),
		UserID:            primitive.NewObjectID(),
		Role:              role,
	}
	b.snap.Participants = append(b.snap.Participants, p)
	return p
}

func (b *snapshotBuilder) opinion(p Participant, tier int, datasetIDs ...primitive.ObjectID) {
	b.snap.Opinions = append(b.snap.Opinions, models.ClassificationOpinion{
		ID:            primitive.NewObjectID(),
		WorkPackageID: b.snap.WorkPackage.ID,
		ClassifierID:  p.UserID,
		RoleSnapshot:  p.Role,
		Tier:          tier,
		DatasetIDs:    datasetIDs,
	})
}

func (b *snapshotBuilder) approve(p Participant, d DatasetRef, approverID primitive.ObjectID) {
	b.snap.Approvals = append(b.snap.Approvals, models.WorkPackageParticipationApproval{
		ID:                         primitive.NewObjectID(),
		WorkPackageParticipationID: p.WPParticipationID,
		WorkPackageID:              b.snap.WorkPackage.ID,
		DatasetID:                  d.ID,
		ApproverID:                 approverID,
	})
}

func containsMsg(msgs []string, want string) bool {
	for _, m := range msgs {
		if m == want {
			return true
		}
	}
	return false
}

func TestMissingRequirements_EmptyWorkPackage(t *testing.T) {
	b := newSnapshot()
	dpr := b.participant(models.RoleDataProviderRepresentative)
	b.dataset("Ice Cores", dpr.UserID)

	missing := b.snap.MissingRequirements()
	if !containsMsg(missing, MsgInvestigatorNeeded) {
		t.Errorf("expected investigator obligation, got %v", missing)
	}
	if !containsMsg(missing, MsgDPRClassify("Ice Cores")) {
		t.Errorf("expected per-dataset obligation, got %v", missing)
	}
}

func TestMissingRequirements_LowTierNeedsNoReferee(t *testing.T) {
	b := newSnapshot()
	dpr := b.participant(models.RoleDataProviderRepresentative)
	inv := b.participant(models.RoleInvestigator)
	d := b.dataset("Ice Cores", dpr.UserID)

	b.opinion(inv, 1)
	b.opinion(dpr, 1, d.ID)

	if missing := b.snap.MissingRequirements(); len(missing) != 0 {
		t.Errorf("expected ready at tier 1, got %v", missing)
	}
	if tier, ok := b.snap.AgreedTier(); !ok || tier != 1 {
		t.Errorf("expected agreed tier 1, got %d ok=%v", tier, ok)
	}
}

func TestMissingRequirements_Tier2NeedsReferee(t *testing.T) {
	b := newSnapshot()
	dpr := b.participant(models.RoleDataProviderRepresentative)
	inv := b.participant(models.RoleInvestigator)
	d := b.dataset("Ice Cores", dpr.UserID)

	b.opinion(inv, 2)
	b.opinion(dpr, 2, d.ID)

	// No referee participant at all.
	missing := b.snap.MissingRequirements()
	if !containsMsg(missing, MsgRefereeNeeded) {
		t.Fatalf("expected referee-needed obligation, got %v", missing)
	}

	// Referee joins but has not classified.
	ref := b.participant(models.RoleReferee)
	missing = b.snap.MissingRequirements()
	if !containsMsg(missing, MsgRefereeClassify) {
		t.Fatalf("expected referee-classify obligation, got %v", missing)
	}

	// Referee classifies; ready at the common tier.
	b.opinion(ref, 2)
	if missing := b.snap.MissingRequirements(); len(missing) != 0 {
		t.Errorf("expected ready, got %v", missing)
	}
	if tier, ok := b.snap.AgreedTier(); !ok || tier != 2 {
		t.Errorf("expected agreed tier 2, got %d ok=%v", tier, ok)
	}
}

func TestMissingRequirements_Tier3RefereeNeedsApproval(t *testing.T) {
	b := newSnapshot()
	dpr := b.participant(models.RoleDataProviderRepresentative)
	inv := b.participant(models.RoleInvestigator)
	ref := b.participant(models.RoleReferee)
	d := b.dataset("Ice Cores", dpr.UserID)

	b.opinion(inv, 3)
	b.opinion(dpr, 3, d.ID)
	b.opinion(ref, 3)

	// The referee's opinion does not count until the DPR approves them for
	// every dataset the DPR represents.
	missing := b.snap.MissingRequirements()
	if len(missing) != 1 || missing[0] != MsgApproveRole(models.RoleReferee) {
		t.Fatalf("expected exactly the approve-referee obligation, got %v", missing)
	}

	b.approve(ref, d, dpr.UserID)
	if missing := b.snap.MissingRequirements(); len(missing) != 0 {
		t.Errorf("expected ready after approval, got %v", missing)
	}
	if tier, ok := b.snap.AgreedTier(); !ok || tier != 3 {
		t.Errorf("expected agreed tier 3, got %d ok=%v", tier, ok)
	}
}

func TestMissingRequirements_MultiDatasetApproval(t *testing.T) {
	b := newSnapshot()
	dpr := b.participant(models.RoleDataProviderRepresentative)
	inv := b.participant(models.RoleInvestigator)
	ref := b.participant(models.RoleReferee)
	d1 := b.dataset("Ice Cores", dpr.UserID)
	d2 := b.dataset("Sediment", dpr.UserID)

	b.opinion(inv, 3)
	b.opinion(dpr, 3, d1.ID, d2.ID)
	b.opinion(ref, 3)

	// Approving one of the two represented datasets is not enough.
	b.approve(ref, d1, dpr.UserID)
	if b.snap.IsApproved(ref) {
		t.Error("expected referee unapproved with one dataset outstanding")
	}

	b.approve(ref, d2, dpr.UserID)
	if !b.snap.IsApproved(ref) {
		t.Error("expected referee approved after both datasets")
	}
}

func TestIsApproved_DefaultRoles(t *testing.T) {
	b := newSnapshot()
	dpr := b.participant(models.RoleDataProviderRepresentative)
	b.dataset("Ice Cores", dpr.UserID)

	for _, role := range []string{
		models.RoleProjectManager,
		models.RoleInvestigator,
		models.RoleDataProviderRepresentative,
	} {
		p := b.participant(role)
		if !b.snap.IsApproved(p) {
			t.Errorf("expected %s approved by default", role)
		}
	}

	res := b.participant(models.RoleResearcher)
	if b.snap.IsApproved(res) {
		t.Error("expected researcher to need explicit approval")
	}
}

func TestOpinionSurvivesRoleChange(t *testing.T) {
	b := newSnapshot()
	dpr := b.participant(models.RoleDataProviderRepresentative)
	inv := b.participant(models.RoleInvestigator)
	d := b.dataset("Ice Cores", dpr.UserID)

	b.opinion(inv, 1)
	b.opinion(dpr, 1, d.ID)

	// The investigator's participation is later deleted; the recorded
	// opinion's role snapshot keeps it counting.
	b.snap.Participants = b.snap.Participants[:1]

	if missing := b.snap.MissingRequirements(); len(missing) != 0 {
		t.Errorf("expected still ready, got %v", missing)
	}
	if got := len(b.snap.CountedOpinions()); got != 2 {
		t.Errorf("expected both opinions counted, got %d", got)
	}
}

func TestRepresentativeReplacementInvalidatesApprovals(t *testing.T) {
	b := newSnapshot()
	oldRep := b.participant(models.RoleDataProviderRepresentative)
	inv := b.participant(models.RoleInvestigator)
	ref := b.participant(models.RoleReferee)
	d := b.dataset("Ice Cores", oldRep.UserID)

	b.opinion(inv, 3)
	b.opinion(oldRep, 3, d.ID)
	b.opinion(ref, 3)
	b.approve(ref, d, oldRep.UserID)

	if !b.snap.IsApproved(ref) {
		t.Fatal("expected referee approved under the old representative")
	}

	// The dataset's representative is replaced; the approval no longer
	// matches and the referee must be re-approved.
	newRep := b.participant(models.RoleDataProviderRepresentative)
	b.snap.Datasets[0].RepresentativeID = newRep.UserID

	if b.snap.IsApproved(ref) {
		t.Error("expected referee unapproved after representative replacement")
	}
}

func TestTierConflict(t *testing.T) {
	b := newSnapshot()
	dpr := b.participant(models.RoleDataProviderRepresentative)
	inv := b.participant(models.RoleInvestigator)
	d := b.dataset("Ice Cores", dpr.UserID)

	b.opinion(inv, 1)
	b.opinion(dpr, 2, d.ID)

	if !b.snap.TierConflict() {
		t.Error("expected a tier conflict")
	}
	if _, ok := b.snap.AgreedTier(); ok {
		t.Error("expected no agreed tier under conflict")
	}
}

func TestUnapprovedOpinionNotCounted(t *testing.T) {
	b := newSnapshot()
	dpr := b.participant(models.RoleDataProviderRepresentative)
	ref := b.participant(models.RoleReferee)
	d := b.dataset("Ice Cores", dpr.UserID)

	// The referee disagrees, but the approval rule is active and the
	// referee is unapproved, so no conflict is visible yet.
	b.opinion(dpr, 3, d.ID)
	b.opinion(ref, 2)

	if b.snap.TierConflict() {
		t.Error("expected no conflict while the referee's opinion is not counted")
	}

	b.approve(ref, d, dpr.UserID)
	if !b.snap.TierConflict() {
		t.Error("expected a conflict once the referee's opinion counts")
	}
}

func TestParticipantsWithApproval(t *testing.T) {
	b := newSnapshot()
	dpr := b.participant(models.RoleDataProviderRepresentative)
	ref := b.participant(models.RoleReferee)
	d := b.dataset("Ice Cores", dpr.UserID)

	// Rule inactive: everyone reports approved.
	for _, pa := range b.snap.ParticipantsWithApproval() {
		if !pa.Approved {
			t.Errorf("expected %s approved while the rule is inactive", pa.Participant.Role)
		}
	}

	b.opinion(dpr, 4, d.ID)
	for _, pa := range b.snap.ParticipantsWithApproval() {
		want := pa.Participant.WPParticipationID != ref.WPParticipationID
		if pa.Approved != want {
			t.Errorf("role %s: approved=%v, want %v", pa.Participant.Role, pa.Approved, want)
		}
	}
}
