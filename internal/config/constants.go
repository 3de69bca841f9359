package config

// ManifestName is the declaration manifest filename the CLI and loader
// look for.
const ManifestName = "boundary.yaml"

// Version is the engine version reported by the CLI.
const Version = "0.1.0"

// DefaultAuditPath is where the CLI writes the audit database when auditing
// is enabled without an explicit path.
const DefaultAuditPath = "boundary-audit.db"
