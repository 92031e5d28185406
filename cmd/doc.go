// Package cmd defines the sekolah CLI.
//
// The crawl command walks the school reference site from the national root
// down to individual school pages and writes one Turtle document plus CSV and
// JSON record tables. Optional side outputs are configured per run:
//   - storage.backend uploads the finished files to a local directory or GCS.
//   - db.dsn stores every school record in Postgres.
//   - pubsub.topic_name publishes one notification per school.
//   - server.enabled exposes /healthz, /readyz, /metrics and /v1/status.
package cmd
