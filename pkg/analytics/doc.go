// Package analytics resolves aggregation periods and queries the
// date-partitioned analytics event store for per-cipher download counts.
//
// The event store is append-only and externally owned; queries here are
// read-only and never mark events consumed. Events missing a cipher_id
// parameter are dropped at the query level rather than surfaced as errors.
package analytics
