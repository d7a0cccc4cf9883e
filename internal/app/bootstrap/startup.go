// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/tierhub/internal/app/store/audit"
	"github.com/dalemusser/tierhub/internal/app/store/guidance"
	"github.com/dalemusser/tierhub/internal/app/store/policies"
	"github.com/dalemusser/tierhub/internal/app/store/questions"
	"github.com/dalemusser/tierhub/internal/app/store/users"
	"github.com/dalemusser/tierhub/internal/app/system/auditlog"
	"github.com/dalemusser/tierhub/internal/app/system/qgraph"
	"github.com/dalemusser/tierhub/internal/app/system/tierpolicy"
	"github.com/dalemusser/tierhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
// TierHub seeds the default question set, the tier policy table, and the
// bootstrap system manager account here.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	auditLog := auditlog.New(audit.New(deps.MongoDatabase), logger, appCfg.AuditConfig())

	if appCfg.SeedQuestions {
		if err := seedQuestions(ctx, deps, auditLog, logger); err != nil {
			return fmt.Errorf("seed question set: %w", err)
		}
	}
	if appCfg.SeedPolicies {
		if err := seedPolicies(ctx, deps, logger); err != nil {
			return fmt.Errorf("seed tier policies: %w", err)
		}
	}
	if appCfg.SystemManagerEmail != "" {
		if err := ensureSystemManager(ctx, deps, auditLog, appCfg.SystemManagerEmail, logger); err != nil {
			return fmt.Errorf("ensure system manager: %w", err)
		}
	}
	return nil
}

// seedQuestions loads the embedded default question set. The import is
// idempotent: question versions only advance when a question actually
// changed, so re-running on every startup is safe.
func seedQuestions(ctx context.Context, deps DBDeps, auditLog *auditlog.Logger, logger *zap.Logger) error {
	file := qgraph.DefaultImport()

	qs := questionstore.New(deps.MongoDatabase)
	_, lookupErr := qs.GetSetByName(ctx, file.Set)
	firstSeed := errors.Is(lookupErr, questionstore.ErrSetNotFound)

	if err := qs.Import(ctx, file); err != nil {
		return err
	}

	set, err := qs.GetSetByName(ctx, file.Set)
	if err != nil {
		return err
	}
	gs := guidancestore.New(deps.MongoDatabase)
	for _, g := range file.Guidance {
		if err := gs.Upsert(ctx, set.ID, g); err != nil {
			return err
		}
	}

	if firstSeed {
		auditLog.QuestionsImported(ctx, primitive.NilObjectID, set.ID, set.Name, len(file.Questions))
	}

	logger.Info("question set seeded",
		zap.String("set", file.Set),
		zap.Int("questions", len(file.Questions)),
		zap.Int("guidance", len(file.Guidance)))
	return nil
}

// seedPolicies loads the embedded tier policy table into its collection
// when the collection is empty, so query surfaces can serve it.
func seedPolicies(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	seeded, err := policystore.New(deps.MongoDatabase).SeedIfEmpty(ctx, tierpolicy.Load().Rows())
	if err != nil {
		return err
	}
	if seeded {
		logger.Info("tier policy table seeded")
	}
	return nil
}

// ensureSystemManager creates or promotes the configured account so a
// fresh deployment always has a system manager.
func ensureSystemManager(ctx context.Context, deps DBDeps, auditLog *auditlog.Logger, email string, logger *zap.Logger) error {
	store := userstore.New(deps.MongoDatabase)

	u, err := store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.SystemRole == models.RoleSystemManager {
			return nil
		}
		if err := store.SetSystemRole(ctx, u.ID, models.RoleSystemManager); err != nil {
			return err
		}
		auditLog.UserRoleChanged(ctx, primitive.NilObjectID, u.ID, models.RoleSystemManager)
		logger.Info("promoted existing user to system manager",
			zap.String("email", email))
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		created, err := store.Create(ctx, models.User{
			FullName:   "System Manager",
			Email:      email,
			SystemRole: models.RoleSystemManager,
		})
		if err != nil {
			return err
		}
		auditLog.UserCreated(ctx, primitive.NilObjectID, created.ID, email)
		logger.Info("created system manager account",
			zap.String("email", email))
		return nil
	default:
		return err
	}
}
