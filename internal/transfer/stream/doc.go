// Package stream joins an ordered list of part bodies into a single reader.
//
// Parts are consumed strictly in the order they were submitted, regardless of
// which body becomes available first. Only the current part's body is read, so
// memory use is bounded by what the caller reads plus whatever the producer
// chooses to keep in flight.
package stream
