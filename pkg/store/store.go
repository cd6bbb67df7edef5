package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyRequired indicates an operation was attempted with an empty key.
	ErrKeyRequired = errors.New("store: key must be provided")
	// ErrDecode marks a persisted payload that could not be decoded. Callers
	// treat a wrapped ErrDecode as "no saved state" rather than a hard
	// failure.
	ErrDecode = errors.New("store: snapshot payload failed to decode")
)

// Meta is storage-owned metadata persisted alongside each snapshot.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves/deletes one snapshot per storage key.
type Store[T any] interface {
	Load(ctx context.Context, key string) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, key string, snapshot T, meta Meta) (Meta, error)
	Delete(ctx context.Context, key string) error
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
