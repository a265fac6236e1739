package cascade

import (
	"encoding/json"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
)

// Status is the load state of one cascade level.
type Status int

const (
	Unloaded Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unloaded"
	}
}

// MarshalText renders the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Scope tags an in-flight fetch with the selection that spawned it. A
// completion is applied only while its scope is still the level's scope.
type Scope struct {
	ID  string
	Seq uint64
}

// Level is the state of one collection in the cascade.
type Level[T any] struct {
	Status Status
	Items  []T
	Err    error
	Scope  Scope
}

func (l Level[T]) clone() Level[T] {
	if l.Items != nil {
		l.Items = append([]T(nil), l.Items...)
	}
	return l
}

type levelError struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// MarshalJSON writes {"status", "items", "error"}. Items is always an
// array; error is present only for a failed level.
func (l Level[T]) MarshalJSON() ([]byte, error) {
	out := struct {
		Status Status      `json:"status"`
		Items  []T         `json:"items"`
		Error  *levelError `json:"error,omitempty"`
	}{Status: l.Status, Items: l.Items}
	if out.Items == nil {
		out.Items = []T{}
	}
	if l.Status == Failed && l.Err != nil {
		out.Error = &levelError{Kind: apperr.KindOf(l.Err), Message: apperr.MessageOf(l.Err)}
	}
	return json.Marshal(out)
}
