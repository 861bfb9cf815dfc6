// Package searcher ranks indexed chunks against a natural language query.
//
// Queries are validated, embedded with the same provider used at index
// time, and scored by cosine similarity against every cached chunk vector.
// Scoring reads a point-in-time cache snapshot, so a search never blocks on
// or is torn by a concurrent index run.
package searcher
