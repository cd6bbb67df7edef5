package formstate

import (
	"fmt"
	"sync"
)

// Field is one named input in a form. Fields without a name are carried for
// rendering parity but excluded from snapshots, matching how unnamed inputs
// never reach a serialized form payload.
type Field struct {
	Name    string
	Value   string
	Default string
}

// FieldSource exposes live field state so captures always read current
// values rather than a stale copy.
type FieldSource interface {
	FormFields() []Field
}

// Form is the unit of auto-save: a stable identifier, an ordered field set,
// optional validation rules, and an optional sync endpoint.
type Form struct {
	id      string
	owner   Owner
	syncURL string
	rules   []Rule

	mu     sync.RWMutex
	fields []Field
	index  map[string]int
}

// FormOption configures form construction.
type FormOption func(*Form)

// WithOwner namespaces the form's storage key to a principal.
func WithOwner(owner Owner) FormOption {
	return func(f *Form) {
		f.owner = owner
	}
}

// WithSyncEndpoint sets the remote endpoint that receives a best-effort copy
// of every saved snapshot. Empty means local persistence only.
func WithSyncEndpoint(url string) FormOption {
	return func(f *Form) {
		f.syncURL = url
	}
}

// WithFields seeds the form's field set. Current values default to the
// server-rendered defaults until inputs arrive.
func WithFields(fields ...Field) FormOption {
	return func(f *Form) {
		for _, field := range fields {
			f.addField(field)
		}
	}
}

// WithRule appends a validation rule evaluated before submission.
func WithRule(rule Rule) FormOption {
	return func(f *Form) {
		f.rules = append(f.rules, rule)
	}
}

// NewForm constructs a form and validates its storage key derivation so
// misconfigured owners surface at build time, not at the first save.
func NewForm(id string, opts ...FormOption) (*Form, error) {
	if id == "" {
		return nil, ErrFormIDRequired
	}
	form := &Form{
		id:    id,
		index: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(form)
		}
	}
	if _, err := form.StorageKey(); err != nil {
		return nil, err
	}
	return form, nil
}

func (f *Form) addField(field Field) {
	if field.Value == "" {
		field.Value = field.Default
	}
	if field.Name != "" {
		if pos, ok := f.index[field.Name]; ok {
			f.fields[pos] = field
			return
		}
		f.index[field.Name] = len(f.fields)
	}
	f.fields = append(f.fields, field)
}

// ID returns the form identifier.
func (f *Form) ID() string {
	return f.id
}

// SyncEndpoint returns the configured remote endpoint, empty when sync is
// disabled for this form.
func (f *Form) SyncEndpoint() string {
	return f.syncURL
}

// Rules returns a copy of the form's validation rules.
func (f *Form) Rules() []Rule {
	if len(f.rules) == 0 {
		return nil
	}
	out := make([]Rule, len(f.rules))
	copy(out, f.rules)
	return out
}

// SetValue updates the named field, reporting false when the form has no
// field under that name.
func (f *Form) SetValue(name, value string) bool {
	if name == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.index[name]
	if !ok {
		return false
	}
	f.fields[pos].Value = value
	return true
}

// Value returns the current value of the named field.
func (f *Form) Value(name string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pos, ok := f.index[name]
	if !ok {
		return "", false
	}
	return f.fields[pos].Value, true
}

// Reset returns every field to its server-rendered default.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.fields {
		f.fields[i].Value = f.fields[i].Default
	}
}

// FormFields implements FieldSource with a defensive copy.
func (f *Form) FormFields() []Field {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Field, len(f.fields))
	copy(out, f.fields)
	return out
}

// Snapshot captures the current value of every named field. Unnamed fields
// are skipped.
func (f *Form) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap := make(Snapshot, len(f.fields))
	for _, field := range f.fields {
		if field.Name == "" {
			continue
		}
		snap[field.Name] = field.Value
	}
	return snap
}

// Defaults captures the server-rendered default of every named field.
func (f *Form) Defaults() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap := make(Snapshot, len(f.fields))
	for _, field := range f.fields {
		if field.Name == "" {
			continue
		}
		snap[field.Name] = field.Default
	}
	return snap
}

func (f *Form) String() string {
	return fmt.Sprintf("form(%s)", f.id)
}
