// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureProjects(ctx, db); err != nil {
		problems = append(problems, "projects: "+err.Error())
	}
	if err := ensureDatasets(ctx, db); err != nil {
		problems = append(problems, "datasets: "+err.Error())
	}
	if err := ensureProjectDatasets(ctx, db); err != nil {
		problems = append(problems, "project_datasets: "+err.Error())
	}
	if err := ensureParticipations(ctx, db); err != nil {
		problems = append(problems, "participations: "+err.Error())
	}
	if err := ensureWorkPackages(ctx, db); err != nil {
		problems = append(problems, "work_packages: "+err.Error())
	}
	if err := ensureWorkPackageDatasets(ctx, db); err != nil {
		problems = append(problems, "work_package_datasets: "+err.Error())
	}
	if err := ensureWorkPackageParticipations(ctx, db); err != nil {
		problems = append(problems, "work_package_participations: "+err.Error())
	}
	if err := ensureApprovals(ctx, db); err != nil {
		problems = append(problems, "work_package_participation_approvals: "+err.Error())
	}
	if err := ensureOpinions(ctx, db); err != nil {
		problems = append(problems, "classification_opinions: "+err.Error())
	}
	if err := ensureQuestionSets(ctx, db); err != nil {
		problems = append(problems, "question_sets: "+err.Error())
	}
	if err := ensureQuestions(ctx, db); err != nil {
		problems = append(problems, "questions: "+err.Error())
	}
	if err := ensureQuestionVersions(ctx, db); err != nil {
		problems = append(problems, "question_versions: "+err.Error())
	}
	if err := ensureGuidance(ctx, db); err != nil {
		problems = append(problems, "classification_guidance: "+err.Error())
	}
	if err := ensureTierPolicies(ctx, db); err != nil {
		problems = append(problems, "tier_policies: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique))

		// 1) Load existing indexes
		existing := map[string]existingIndex{} // sig -> index
		cur, err := coll.Indexes().List(ctx)
		if err == nil {
			defer cur.Close(ctx)
			for cur.Next(ctx) {
				var idx existingIndex
				if err := cur.Decode(&idx); err != nil {
					zap.L().Warn("failed to decode existing index",
						zap.String("collection", coll.Name()),
						zap.Error(err))
					continue
				}
				existing[keySig(idx.Key)] = idx
			}
		}

		if ex, ok := existing[desiredSig]; ok {
			// Same key pattern exists already.
			if sameBoolPtr(desiredUnique, ex.Unique) {
				// --- Name alignment: if the name differs, drop & recreate with the desired name.
				if desiredName != "" && ex.Name != desiredName {
					zap.L().Info("renaming index to align with desired name",
						zap.String("collection", coll.Name()),
						zap.String("from", ex.Name),
						zap.String("to", desiredName),
						zap.String("keys", desiredSig))

					if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
						zap.L().Warn("drop existing index (rename) failed",
							zap.String("collection", coll.Name()),
							zap.String("name", ex.Name),
							zap.Error(err))
						errs = append(errs, fmt.Sprintf("%s(%s): rename drop failed: %v", coll.Name(), desiredName, err))
						continue
					}
					if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
						zap.L().Warn("create index (rename) failed",
							zap.String("collection", coll.Name()),
							zap.String("name", desiredName),
							zap.Error(err))
						errs = append(errs, fmt.Sprintf("%s(%s): rename create failed: %v", coll.Name(), desiredName, err))
						continue
					}
					zap.L().Info("index renamed",
						zap.String("collection", coll.Name()),
						zap.String("name", desiredName),
						zap.String("keys", desiredSig),
						zap.String("took", time.Since(start).String()))
					continue
				}

				// Names aligned (or we don't care) → reuse
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Bool("unique", ex.Unique != nil && *ex.Unique),
					zap.String("took", time.Since(start).String()))
				continue
			}

			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				zap.L().Warn("drop existing index failed",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
					errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				}
				continue
			}
			zap.L().Info("index dropped and recreated",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
			continue
		}

		// 2) No existing index with the same keys: create it.
		if created, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isOptionsConflictErr(err) {
				cur2, e2 := coll.Indexes().List(ctx)
				if e2 == nil {
					var match *existingIndex
					for cur2.Next(ctx) {
						var idx existingIndex
						if err := cur2.Decode(&idx); err != nil {
							zap.L().Warn("failed to decode existing index (post-conflict)",
								zap.String("collection", coll.Name()),
								zap.Error(err))
							continue
						}
						if keySig(idx.Key) == desiredSig {
							match = &idx
							break
						}
					}
					cur2.Close(ctx)
					if match != nil {
						if sameBoolPtr(desiredUnique, match.Unique) {
							zap.L().Info("reusing existing index (post-conflict)",
								zap.String("collection", coll.Name()),
								zap.String("name", match.Name),
								zap.String("keys", desiredSig),
								zap.Bool("unique", match.Unique != nil && *match.Unique),
								zap.String("took", time.Since(start).String()))
							continue
						}
						if _, dropErr := coll.Indexes().DropOne(ctx, match.Name); dropErr != nil {
							zap.L().Warn("failed to drop conflicting index",
								zap.String("collection", coll.Name()),
								zap.String("name", match.Name),
								zap.Error(dropErr))
						}
						if _, e3 := coll.Indexes().CreateOne(ctx, m); e3 != nil {
							if isDuplicateKeyErr(e3) && desiredUnique != nil && *desiredUnique {
								errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
							} else {
								errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, e3))
							}
							continue
						}
						zap.L().Info("index dropped and recreated (post-conflict)",
							zap.String("collection", coll.Name()),
							zap.String("name", desiredName),
							zap.String("keys", desiredSig),
							zap.Bool("unique", desiredUnique != nil && *desiredUnique),
							zap.String("took", time.Since(start).String()))
						continue
					}
				}

				zap.L().Warn("index ensure failed",
					zap.String("collection", coll.Name()),
					zap.String("name", desiredName),
					zap.String("keys", desiredSig),
					zap.Bool("unique", desiredUnique != nil && *desiredUnique),
					zap.String("took", time.Since(start).String()),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				continue
			}

			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		} else {
			zap.L().Info("index ensured",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("created_name", created),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email must be unique across all users
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// List pages: prefix search on folded name + stable tiebreak
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_fullnameci__id"),
		},
		// System role lookups (system managers, programme managers)
		{
			Keys:    bson.D{{Key: "system_role", Value: 1}},
			Options: options.Index().SetName("idx_users_system_role"),
		},
	})
}

func ensureProjects(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("projects")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Enforce global uniqueness of project names (case/diacritics folded).
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_projects_nameci"),
		},
		// Filter by archived then name sort, stable tiebreak
		{
			Keys:    bson.D{{Key: "archived", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_projects_archived_nameci__id"),
		},
		// Programme reporting
		{
			Keys:    bson.D{{Key: "programmes", Value: 1}},
			Options: options.Index().SetName("idx_projects_programmes"),
		},
	})
}

func ensureDatasets(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("datasets")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// The external identifier handed to ingress tooling
		{
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_datasets_uuid"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_datasets_nameci__id"),
		},
	})
}

func ensureProjectDatasets(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("project_datasets")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// A dataset appears at most once on a project
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "dataset_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_pd_project_dataset"),
		},
		// Which projects hold a dataset (lifecycle checks before removal)
		{
			Keys:    bson.D{{Key: "dataset_id", Value: 1}},
			Options: options.Index().SetName("idx_pd_dataset"),
		},
		// Which datasets a user represents on a project
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "representative_id", Value: 1}},
			Options: options.Index().SetName("idx_pd_project_rep"),
		},
	})
}

func ensureParticipations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("participations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Exactly one participation per (project, user); the role is scalar
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_part_project_user"),
		},
		// List project members segmented by role
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "role", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_part_project_role_user"),
		},
		// List a user's projects
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "project_id", Value: 1}},
			Options: options.Index().SetName("idx_part_user_project"),
		},
	})
}

func ensureWorkPackages(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("work_packages")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_wp_project_nameci"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "state", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_wp_project_state__id"),
		},
	})
}

func ensureWorkPackageDatasets(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("work_package_datasets")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "work_package_id", Value: 1}, {Key: "dataset_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_wpd_wp_dataset"),
		},
		// Which work packages use a dataset (removal guard)
		{
			Keys:    bson.D{{Key: "dataset_id", Value: 1}},
			Options: options.Index().SetName("idx_wpd_dataset"),
		},
	})
}

func ensureWorkPackageParticipations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("work_package_participations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "work_package_id", Value: 1}, {Key: "participation_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_wpp_wp_participation"),
		},
		// Cascade removal when a participation leaves the project
		{
			Keys:    bson.D{{Key: "participation_id", Value: 1}},
			Options: options.Index().SetName("idx_wpp_participation"),
		},
	})
}

func ensureApprovals(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("work_package_participation_approvals")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One approval per approver per dataset per membership
		{
			Keys: bson.D{
				{Key: "work_package_participation_id", Value: 1},
				{Key: "dataset_id", Value: 1},
				{Key: "approver_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_appr_wpp_dataset_approver"),
		},
		{
			Keys:    bson.D{{Key: "work_package_id", Value: 1}},
			Options: options.Index().SetName("idx_appr_wp"),
		},
	})
}

func ensureOpinions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("classification_opinions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One opinion per classifier per work package
		{
			Keys:    bson.D{{Key: "work_package_id", Value: 1}, {Key: "classifier_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_op_wp_classifier"),
		},
		// Does any opinion still reference a question (deletion guard)
		{
			Keys:    bson.D{{Key: "answers.question_id", Value: 1}},
			Options: options.Index().SetName("idx_op_answers_question"),
		},
	})
}

func ensureQuestionSets(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("question_sets")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_qs_name"),
		},
	})
}

func ensureQuestions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("questions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Names are the import identity, unique within a set
		{
			Keys:    bson.D{{Key: "set_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_q_set_name"),
		},
	})
}

func ensureQuestionVersions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("question_versions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Replay resolves (question, version) pairs
		{
			Keys:    bson.D{{Key: "question_id", Value: 1}, {Key: "version_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_qv_question_version"),
		},
		{
			Keys:    bson.D{{Key: "set_id", Value: 1}, {Key: "version_id", Value: 1}},
			Options: options.Index().SetName("idx_qv_set_version"),
		},
	})
}

func ensureGuidance(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("classification_guidance")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "set_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_guid_set_name"),
		},
	})
}

func ensureTierPolicies(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("tier_policies")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tier", Value: 1}, {Key: "group", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tp_tier_group"),
		},
	})
}
