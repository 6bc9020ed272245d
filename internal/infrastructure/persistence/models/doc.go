// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain types so the domain stays free of ORM tags.
//
// - record_collection.go: one row per record collection, plus the
//   document_sequences counter table used by the database id sequence.
package models
