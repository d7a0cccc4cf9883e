// internal/app/system/consensus/engine.go
package consensus

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/tierhub/internal/app/policy/wppolicy"
	"github.com/dalemusser/tierhub/internal/app/store/approvals"
	"github.com/dalemusser/tierhub/internal/app/store/datasets"
	"github.com/dalemusser/tierhub/internal/app/store/opinions"
	"github.com/dalemusser/tierhub/internal/app/store/participations"
	"github.com/dalemusser/tierhub/internal/app/store/questions"
	"github.com/dalemusser/tierhub/internal/app/store/workpackages"
	"github.com/dalemusser/tierhub/internal/app/system/auditlog"
	"github.com/dalemusser/tierhub/internal/app/system/authz"
	"github.com/dalemusser/tierhub/internal/app/system/faults"
	"github.com/dalemusser/tierhub/internal/app/system/tierpolicy"
	"github.com/dalemusser/tierhub/internal/app/system/txn"
	"github.com/dalemusser/tierhub/internal/app/system/walk"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotParticipant = errors.New("the classifier is not a participant of this work package")
	ErrNoDatasets     = errors.New("the work package has no datasets")
	ErrInvalidTier    = errors.New("tier must be between 0 and 4")
)

// Engine runs the classification lifecycle of a work package: opening,
// recording and deleting opinions, granting approvals, clearing, and
// closing at the agreed tier. Every mutation that can change readiness
// runs in one transaction with the readiness calculation, so two
// concurrent mutations cannot jointly close a work package at an
// inconsistent tier.
type Engine struct {
	db     *mongo.Database
	client *mongo.Client
	matrix *authz.Matrix
	audit  *auditlog.Logger

	wps       *wpstore.Store
	opinions  *opinionstore.Store
	parts     *participationstore.Store
	datasets  *datasetstore.Store
	approvals *approvalstore.Store
	questions *questionstore.Store
	policies  *tierpolicy.Table
}

func NewEngine(db *mongo.Database, client *mongo.Client, matrix *authz.Matrix, audit *auditlog.Logger) *Engine {
	return &Engine{
		db:        db,
		client:    client,
		matrix:    matrix,
		audit:     audit,
		policies:  tierpolicy.Load(),
		wps:       wpstore.New(db),
		opinions:  opinionstore.New(db),
		parts:     participationstore.New(db),
		datasets:  datasetstore.New(db),
		approvals: approvalstore.New(db),
		questions: questionstore.New(db),
	}
}

// Snapshot loads everything the decision rules need for one work package.
// Call inside a transaction when the result feeds a mutation.
func (e *Engine) Snapshot(ctx context.Context, wpID primitive.ObjectID) (*Snapshot, error) {
	wp, err := e.wps.GetByID(ctx, wpID)
	if err != nil {
		return nil, err
	}
	return e.snapshot(ctx, wp)
}

func (e *Engine) snapshot(ctx context.Context, wp models.WorkPackage) (*Snapshot, error) {
	snap := &Snapshot{WorkPackage: wp}

	wpds, err := e.wps.ListDatasets(ctx, wp.ID)
	if err != nil {
		return nil, err
	}
	for _, wpd := range wpds {
		assoc, err := e.datasets.GetAssociation(ctx, wp.ProjectID, wpd.DatasetID)
		if err != nil {
			return nil, err
		}
		d, err := e.datasets.GetByID(ctx, wpd.DatasetID)
		if err != nil {
			return nil, err
		}
		snap.Datasets = append(snap.Datasets, DatasetRef{
			ID:               d.ID,
			Name:             d.Name,
			RepresentativeID: assoc.RepresentativeID,
		})
	}

	wpps, err := e.parts.ListByWorkPackage(ctx, wp.ID)
	if err != nil {
		return nil, err
	}
	for _, wpp := range wpps {
		p, err := e.parts.GetByID(ctx, wpp.ParticipationID)
		if err != nil {
			return nil, err
		}
		snap.Participants = append(snap.Participants, Participant{
			WPParticipationID: wpp.ID,
			ParticipationID:   p.ID,
			UserID:            p.UserID,
			Role:              p.Role,
		})
	}

	if snap.Opinions, err = e.opinions.ListByWorkPackage(ctx, wp.ID); err != nil {
		return nil, err
	}
	if snap.Approvals, err = e.approvals.ListByWorkPackage(ctx, wp.ID); err != nil {
		return nil, err
	}
	return snap, nil
}

// Open moves a work package from new to underway. A work package with no
// datasets cannot be opened.
func (e *Engine) Open(ctx context.Context, actor models.User, wpID primitive.ObjectID) error {
	wp, err := e.wps.GetByID(ctx, wpID)
	if err != nil {
		return err
	}
	if _, err := wppolicy.Require(ctx, e.db, e.matrix, actor, wp, "open_classification"); err != nil {
		return err
	}

	err = txn.WithTransaction(ctx, e.client, func(ctx context.Context) error {
		wpds, err := e.wps.ListDatasets(ctx, wpID)
		if err != nil {
			return err
		}
		if len(wpds) == 0 {
			return faults.Statef("a work package with no datasets cannot be opened")
		}
		if err := e.wps.TransitionState(ctx, wpID, models.StateNew, models.StateUnderway); err != nil {
			if errors.Is(err, wpstore.ErrStateMismatch) {
				return faults.Statef("the work package is no longer %s", models.StateNew)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.audit.ClassificationOpened(ctx, actor.ID, wp.ProjectID, wpID)
	return nil
}

// Clear erases every opinion and returns the work package to the new
// state. Approvals already granted survive a clear.
func (e *Engine) Clear(ctx context.Context, actor models.User, wpID primitive.ObjectID) error {
	wp, err := e.wps.GetByID(ctx, wpID)
	if err != nil {
		return err
	}
	if _, err := wppolicy.Require(ctx, e.db, e.matrix, actor, wp, "clear_classification"); err != nil {
		return err
	}

	var deleted int64
	err = txn.WithTransaction(ctx, e.client, func(ctx context.Context) error {
		deleted, err = e.opinions.DeleteByWorkPackage(ctx, wpID)
		if err != nil {
			return err
		}
		if err := e.wps.TransitionState(ctx, wpID, models.StateUnderway, models.StateNew); err != nil {
			if errors.Is(err, wpstore.ErrStateMismatch) {
				return faults.Statef("the work package is no longer %s", models.StateUnderway)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.audit.ClassificationCleared(ctx, actor.ID, wp.ProjectID, wpID, deleted)
	return nil
}

// Close moves an underway work package to classified at the agreed tier.
// Closing an already classified work package is a no-op.
func (e *Engine) Close(ctx context.Context, actor models.User, wpID primitive.ObjectID) error {
	wp, err := e.wps.GetByID(ctx, wpID)
	if err != nil {
		return err
	}
	if wp.State == models.StateClassified {
		return nil
	}
	if _, err := wppolicy.Require(ctx, e.db, e.matrix, actor, wp, "close_classification"); err != nil {
		return err
	}

	var tier int
	var denied string
	err = txn.WithTransaction(ctx, e.client, func(ctx context.Context) error {
		snap, err := e.snapshot(ctx, wp)
		if err != nil {
			return err
		}
		if missing := snap.MissingRequirements(); len(missing) > 0 {
			denied = strings.Join(missing, " ")
			return faults.Statef("the work package is not ready to close: %s", denied)
		}
		if snap.TierConflict() {
			denied = "the recorded opinions disagree on the tier"
			return faults.Statef("the recorded opinions disagree on the tier")
		}
		agreed, ok := snap.AgreedTier()
		if !ok {
			return faults.Statef("no opinions are available to close with")
		}
		tier = agreed
		if err := e.wps.Close(ctx, wpID, tier); err != nil {
			if errors.Is(err, wpstore.ErrStateMismatch) {
				return faults.Statef("the work package is no longer %s", models.StateUnderway)
			}
			return err
		}
		return nil
	})
	if err != nil {
		// Audited outside the aborting transaction, which would roll a
		// session-bound insert back.
		if denied != "" {
			e.audit.ClassificationCloseDenied(ctx, actor.ID, wp.ProjectID, wpID, denied)
		}
		return err
	}
	e.audit.ClassificationClosed(ctx, actor.ID, wp.ProjectID, wpID, tier)
	return nil
}

// RecordOpinion validates and persists a classifier's opinion: the actor
// must be a work-package participant, the work package must have datasets,
// the tier must be in range, and the answers must replay to that tier
// under the historical graph.
func (e *Engine) RecordOpinion(ctx context.Context, actor models.User, wpID primitive.ObjectID, tier int, answers []models.OpinionAnswer) (models.ClassificationOpinion, error) {
	wp, err := e.wps.GetByID(ctx, wpID)
	if err != nil {
		return models.ClassificationOpinion{}, err
	}
	if _, err := wppolicy.Require(ctx, e.db, e.matrix, actor, wp, "classify_data"); err != nil {
		return models.ClassificationOpinion{}, err
	}
	if tier < 0 || tier > 4 {
		return models.ClassificationOpinion{}, ErrInvalidTier
	}

	var created models.ClassificationOpinion
	err = txn.WithTransaction(ctx, e.client, func(ctx context.Context) error {
		p, err := e.parts.GetByProjectUser(ctx, wp.ProjectID, actor.ID)
		if errors.Is(err, participationstore.ErrNotFound) {
			return ErrNotParticipant
		}
		if err != nil {
			return err
		}
		if _, err := e.parts.GetWorkPackageParticipation(ctx, wpID, p.ID); err != nil {
			if errors.Is(err, participationstore.ErrNotFound) {
				return ErrNotParticipant
			}
			return err
		}

		wpds, err := e.wps.ListDatasets(ctx, wpID)
		if err != nil {
			return err
		}
		if len(wpds) == 0 {
			return ErrNoDatasets
		}

		replayed, err := walk.Replay(ctx, e.questions, answers)
		if err != nil {
			return err
		}
		if replayed != tier {
			return &walk.WalkMismatchError{Msg: "the recorded answers do not reach the submitted tier"}
		}

		o := models.ClassificationOpinion{
			WorkPackageID: wpID,
			ClassifierID:  actor.ID,
			RoleSnapshot:  p.Role,
			Tier:          tier,
			Answers:       answers,
		}
		if p.Role == models.RoleDataProviderRepresentative {
			for _, wpd := range wpds {
				assoc, err := e.datasets.GetAssociation(ctx, wp.ProjectID, wpd.DatasetID)
				if err != nil {
					return err
				}
				if assoc.RepresentativeID == actor.ID {
					o.DatasetIDs = append(o.DatasetIDs, wpd.DatasetID)
				}
			}
		}

		created, err = e.opinions.Create(ctx, o)
		if errors.Is(err, opinionstore.ErrAlreadyClassified) {
			return faults.Validationf("you have already classified this work package")
		}
		return err
	})
	if err != nil {
		return models.ClassificationOpinion{}, err
	}
	e.audit.OpinionRecorded(ctx, actor.ID, wp.ProjectID, wpID, created.RoleSnapshot, tier)
	return created, nil
}

// DeleteOpinion removes the actor's own opinion. Opinions are deletable
// only by their author and only while the work package has no tier.
func (e *Engine) DeleteOpinion(ctx context.Context, actor models.User, wpID, classifierID primitive.ObjectID) error {
	wp, err := e.wps.GetByID(ctx, wpID)
	if err != nil {
		return err
	}
	if wp.Tier != nil {
		return faults.Statef("opinions cannot be deleted once the work package is classified")
	}
	if actor.ID != classifierID {
		return faults.Validationf("only the author may delete an opinion")
	}
	if _, err := wppolicy.Require(ctx, e.db, e.matrix, actor, wp, "delete_classification"); err != nil {
		return err
	}

	err = txn.WithTransaction(ctx, e.client, func(ctx context.Context) error {
		n, err := e.opinions.Delete(ctx, wpID, classifierID)
		if err != nil {
			return err
		}
		if n == 0 {
			return opinionstore.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.audit.OpinionDeleted(ctx, actor.ID, wp.ProjectID, wpID)
	return nil
}

// Approve grants a participant access approvals from the acting data
// provider representative, one per dataset the actor currently represents
// on this work package.
func (e *Engine) Approve(ctx context.Context, actor models.User, wpID, userID primitive.ObjectID) error {
	wp, err := e.wps.GetByID(ctx, wpID)
	if err != nil {
		return err
	}
	if _, err := wppolicy.Require(ctx, e.db, e.matrix, actor, wp, "approve_participants"); err != nil {
		return err
	}

	err = txn.WithTransaction(ctx, e.client, func(ctx context.Context) error {
		target, err := e.parts.GetByProjectUser(ctx, wp.ProjectID, userID)
		if errors.Is(err, participationstore.ErrNotFound) {
			return ErrNotParticipant
		}
		if err != nil {
			return err
		}
		wpp, err := e.parts.GetWorkPackageParticipation(ctx, wpID, target.ID)
		if errors.Is(err, participationstore.ErrNotFound) {
			return ErrNotParticipant
		}
		if err != nil {
			return err
		}

		wpds, err := e.wps.ListDatasets(ctx, wpID)
		if err != nil {
			return err
		}
		granted := 0
		for _, wpd := range wpds {
			assoc, err := e.datasets.GetAssociation(ctx, wp.ProjectID, wpd.DatasetID)
			if err != nil {
				return err
			}
			if assoc.RepresentativeID != actor.ID {
				continue
			}
			err = e.approvals.Grant(ctx, models.WorkPackageParticipationApproval{
				WorkPackageParticipationID: wpp.ID,
				WorkPackageID:              wpID,
				DatasetID:                  wpd.DatasetID,
				ApproverID:                 actor.ID,
			})
			if err != nil {
				return err
			}
			granted++
		}
		if granted == 0 {
			return faults.Validationf("you do not represent any dataset on this work package")
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.audit.ParticipantApproved(ctx, actor.ID, wp.ProjectID, wpID, userID)
	return nil
}

// ClassifiableBy reports whether the user can currently record an opinion
// on the work package: permitted by the matrix in the current state, on
// the work package, and not already recorded.
func (e *Engine) ClassifiableBy(ctx context.Context, user models.User, wp models.WorkPackage) (bool, error) {
	ok, _, err := wppolicy.Allowed(ctx, e.db, e.matrix, user, wp, "classify_data")
	if err != nil || !ok {
		return false, err
	}
	p, err := e.parts.GetByProjectUser(ctx, wp.ProjectID, user.ID)
	if errors.Is(err, participationstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := e.parts.GetWorkPackageParticipation(ctx, wp.ID, p.ID); err != nil {
		if errors.Is(err, participationstore.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := e.opinions.Get(ctx, wp.ID, user.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, opinionstore.ErrNotFound) {
		return false, err
	}
	return true, nil
}

// Status is the read-side view of one work package's classification:
// lifecycle state, tier, what still blocks closing, and the policy
// assignments the tier selects.
type Status struct {
	State               string                    `json:"state"`
	Tier                *int                      `json:"tier,omitempty"`
	MissingRequirements []string                  `json:"missing_requirements,omitempty"`
	TierConflict        bool                      `json:"tier_conflict"`
	Policies            []models.PolicyAssignment `json:"policies,omitempty"`
	Participants        []ParticipantApproval     `json:"participants"`
}

// Status derives the classification view from the authoritative opinion
// set; no cached tier is consulted for the readiness parts.
func (e *Engine) Status(ctx context.Context, wpID primitive.ObjectID) (*Status, error) {
	snap, err := e.Snapshot(ctx, wpID)
	if err != nil {
		return nil, err
	}
	return &Status{
		State:               snap.WorkPackage.State,
		Tier:                snap.WorkPackage.Tier,
		MissingRequirements: snap.MissingRequirements(),
		TierConflict:        snap.TierConflict(),
		Policies:            e.policies.PoliciesFor(snap.WorkPackage.Tier),
		Participants:        snap.ParticipantsWithApproval(),
	}, nil
}
