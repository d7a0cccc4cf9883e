// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for TierHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, audit_log_admin, etc.
//   - Environment variables: TIERHUB_MONGO_URI, TIERHUB_AUDIT_LOG_ADMIN, etc.
//   - Command-line flags: --mongo_uri, --audit_log_admin, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "tier_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Audit logging settings, one per event category
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_membership", Default: "all", Desc: "Membership event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_classify", Default: "all", Desc: "Classification event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Startup seeding
	{Name: "seed_questions", Default: true, Desc: "Load the default question set when none exists"},
	{Name: "seed_policies", Default: true, Desc: "Load the tier policy table when the collection is empty"},

	// System manager bootstrap
	{Name: "system_manager_email", Default: "", Desc: "Email of the system manager account (promotes/creates on startup)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, TIERHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TIERHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		AuditLogAdmin:      appValues.String("audit_log_admin"),
		AuditLogMembership: appValues.String("audit_log_membership"),
		AuditLogClassify:   appValues.String("audit_log_classify"),

		SeedQuestions: appValues.Bool("seed_questions"),
		SeedPolicies:  appValues.Bool("seed_policies"),

		SystemManagerEmail: appValues.String("system_manager_email"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// TierHub validates the MongoDB URI format and the audit settings to
// catch configuration errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	for name, v := range map[string]string{
		"audit_log_admin":      appCfg.AuditLogAdmin,
		"audit_log_membership": appCfg.AuditLogMembership,
		"audit_log_classify":   appCfg.AuditLogClassify,
	} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", name, v)
		}
	}

	return nil
}
