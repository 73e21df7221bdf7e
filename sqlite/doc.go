// Package sqlite provides an embedded SQLite engine for the database package, built on
// the pure Go modernc.org/sqlite driver.
//
// Importing the package registers the engine under the tag "SQLite". The database part
// of the DSN is the file path; an empty database opens a private in-memory database:
//
//	database.Get("SQLite://localhost/data/app.db", false)   // relative path
//	database.Get("SQLite:////var/lib/app/app.db", false)     // absolute path
//	database.Get("SQLite://", false)                         // in memory
//
// Foreign keys are enforced on every connection. The manager keeps a single connection,
// so an in-memory database lives as long as the manager stays connected.
package sqlite
