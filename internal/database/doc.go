// Package database provides the PostgreSQL pool behind the activity log.
//
// The database is optional: with no host configured the relay runs without
// persisting activity.
package database
