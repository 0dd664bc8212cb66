// Package schema describes the relational catalog and assembles SQL from it.
//
// A Database owns Tables, a Table owns Columns, and every name is resolved
// through the Database's dialect once, at registration time. After boot the
// catalog is read-only and safe to share between goroutines; reloading builds
// a new Database rather than mutating the old one.
//
// Joins and the Select, Insert, Update and Delete builders turn catalog
// objects into SQL text with "?" placeholders. Use dialect.Dialect.Rebind to
// convert the placeholders for engines that number them.
package schema
