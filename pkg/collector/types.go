// Package collector gathers labeled traffic batches from acquisition
// sources and persists one tabular file per collection type.
package collector

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidType indicates an unknown collection type was requested.
	ErrInvalidType = errors.New("collector: unsupported collection type")

	// ErrCollectionFailed indicates the underlying acquisition failed or
	// produced no data. Nothing is saved when collection fails.
	ErrCollectionFailed = errors.New("collector: collection failed")

	// ErrPersistence indicates collected data could not be saved.
	ErrPersistence = errors.New("collector: persistence failed")
)

// Type is the closed set of collection kinds. Dispatch over Type is an
// exhaustive switch so adding a kind is a compile-time-checked change.
type Type int

const (
	TypeNormal Type = iota
	TypeAttack
	TypeSynthetic
)

// String returns the type's wire name, used in file names and metrics.
func (t Type) String() string {
	switch t {
	case TypeNormal:
		return "normal"
	case TypeAttack:
		return "attack"
	case TypeSynthetic:
		return "synthetic"
	default:
		return "unknown"
	}
}

// ParseType maps a collection-type name to its Type, failing fast with
// ErrInvalidType for anything outside the closed set.
func ParseType(s string) (Type, error) {
	switch s {
	case "normal":
		return TypeNormal, nil
	case "attack":
		return TypeAttack, nil
	case "synthetic":
		return TypeSynthetic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}
