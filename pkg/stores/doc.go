// Package stores provides local persistence for deployment history.
//
// The SQLite store keeps a record of every submitted deployment, every
// rollback executed against one, and the timeline events emitted while
// they ran. It also implements telemetry.EventSink so the event emitter
// can fan events straight into the database.
//
// Schema changes are embedded golang-migrate migrations applied by
// Migrate at startup.
package stores
