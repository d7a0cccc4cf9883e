// internal/app/bootstrap/appconfig.go
package bootstrap

import "github.com/dalemusser/tierhub/internal/app/system/auditlog"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS,
// logging, timeouts); AppConfig is everything specific to TierHub. The
// struct is passed to most lifecycle hooks, so any configuration needed
// during startup, request handling, or shutdown lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Audit logging configuration, one setting per event category:
	// "all" (db+log), "db", "log", or "off".
	AuditLogAdmin      string
	AuditLogMembership string
	AuditLogClassify   string

	// Startup seeding. The default question set and the tier policy table
	// are loaded from embedded resources when missing.
	SeedQuestions bool
	SeedPolicies  bool

	// SystemManagerEmail names an account to create or promote to system
	// manager on startup, so a fresh deployment has someone who can act.
	SystemManagerEmail string
}

// AuditConfig maps the audit_log_* settings into an auditlog.Config.
func (c AppConfig) AuditConfig() auditlog.Config {
	return auditlog.Config{
		Admin:      c.AuditLogAdmin,
		Membership: c.AuditLogMembership,
		Classify:   c.AuditLogClassify,
	}
}
