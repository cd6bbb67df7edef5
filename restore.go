package formstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-formstate/pkg/activity"
	"github.com/goliatone/go-formstate/pkg/store"
)

// Source identifies which layer supplied a restored field value.
type Source string

const (
	// SourceSnapshot marks a value read from the persisted snapshot.
	SourceSnapshot Source = "snapshot"
	// SourceDefault marks a field untouched by restore, keeping its
	// server-rendered default.
	SourceDefault Source = "default"
)

// FieldProvenance details how restore settled one field.
type FieldProvenance struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source Source `json:"source"`
}

// RestoreResult captures provenance for a restore pass.
type RestoreResult struct {
	Restored   bool              `json:"restored"`
	SnapshotID string            `json:"snapshot_id,omitempty"`
	Fields     []FieldProvenance `json:"fields"`
}

// ToJSON serialises the result for logging or transport helpers.
func (r RestoreResult) ToJSON() ([]byte, error) {
	type alias RestoreResult
	return json.Marshal(alias(r))
}

// RestoreResultFromJSON deserialises a payload previously produced by ToJSON.
func RestoreResultFromJSON(payload []byte) (RestoreResult, error) {
	type alias RestoreResult
	var result alias
	if err := json.Unmarshal(payload, &result); err != nil {
		return RestoreResult{}, err
	}
	return RestoreResult(result), nil
}

// Restore loads any snapshot persisted under the form's storage key and
// writes stored values into matching fields. Fields absent from the snapshot
// keep their server-rendered defaults. Restore runs once per cache: repeat
// calls return the original result without touching field state again.
//
// A snapshot that fails to decode is reported through the error handler and
// treated as absent; only store I/O failures reach the caller.
func (c *Cache) Restore(ctx context.Context) (RestoreResult, error) {
	// Serializes concurrent restore calls: the second blocks here and then
	// observes c.restored instead of running a second pass.
	c.restoreMu.Lock()
	defer c.restoreMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return RestoreResult{}, ErrClosed
	}
	if c.restored {
		report := c.report
		c.mu.Unlock()
		return report, nil
	}
	c.mu.Unlock()

	snapshot, meta, ok, err := c.store.Load(ctx, c.key)
	if err != nil {
		if !errors.Is(err, store.ErrDecode) {
			return RestoreResult{}, fmt.Errorf("formstate: load %q: %w", c.key, err)
		}
		c.reportError(fmt.Errorf("formstate: load %q: %w", c.key, err))
		ok = false
	}

	result := RestoreResult{Restored: ok}
	if ok {
		result.SnapshotID = meta.SnapshotID
	}
	for _, field := range c.form.FormFields() {
		if field.Name == "" {
			continue
		}
		provenance := FieldProvenance{
			Name:   field.Name,
			Value:  field.Value,
			Source: SourceDefault,
		}
		if ok {
			if value, present := snapshot[field.Name]; present {
				c.form.SetValue(field.Name, value)
				provenance.Value = value
				provenance.Source = SourceSnapshot
			}
		}
		result.Fields = append(result.Fields, provenance)
	}

	c.mu.Lock()
	c.restored = true
	c.report = result
	c.mu.Unlock()

	if ok {
		c.emit(ctx, activity.BuildFormRestoredEvent(c.eventInput(meta.SnapshotID, snapshot)))
	}
	return result, nil
}
