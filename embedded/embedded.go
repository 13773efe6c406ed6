package embedded

import _ "embed"

// Database migrations.

// DBMigration1x0 is the initial database setup from first version.
//
//go:embed sql/1x0.sql
var DBMigration1x0 string

// SampleEvents holds the JSON-encoded events that are created on request when
// setting up a fresh installation.
//
//go:embed sample_events.json
var SampleEvents []byte
