// Package idgen issues identifiers for tasks, attachments and channel sessions.
package idgen

import (
	"github.com/oklog/ulid/v2"
)

// Generator produces identifiers that are unique among everything the
// process has issued.
type Generator interface {
	Next() string
}

// ULID draws from ulid's process-wide monotonic entropy, so two ids minted in
// the same millisecond still differ and sort in issue order.
type ULID struct{}

func NewULID() ULID {
	return ULID{}
}

func (ULID) Next() string {
	return ulid.Make().String()
}

// Func adapts a plain function to Generator.
type Func func() string

func (f Func) Next() string {
	return f()
}
