// Package idgen issues opaque identifiers for boots, queued messages and
// accounting records. Callers treat them as strings and never parse them.
package idgen
