package formstate

import (
	"errors"
	"fmt"
)

// Owner scopes a form's persisted state to the principal editing it. A zero
// Owner means the form is stored without principal namespacing.
type Owner struct {
	Kind string // "user" or "session"
	ID   string
}

// OwnerKind values accepted by StorageKey.
const (
	OwnerKindUser    = "user"
	OwnerKindSession = "session"
)

var (
	// ErrFormIDRequired indicates a form was built without an identifier.
	ErrFormIDRequired = errors.New("formstate: form id must be provided")
	// ErrDuplicateKey indicates two live forms derived the same storage key.
	// Sharing a key would let the forms overwrite each other's snapshots, so
	// registration refuses the second form.
	ErrDuplicateKey = errors.New("formstate: storage key already registered")
)

func (o Owner) isZero() bool {
	return o.Kind == "" && o.ID == ""
}

// StorageKey derives the deterministic key that namespaces this form's
// persisted snapshot. The key must stay stable across page loads and process
// restarts for restore to find prior state.
func (f *Form) StorageKey() (string, error) {
	if f == nil {
		return "", ErrFormIDRequired
	}
	return StorageKeyFor(f.id, f.owner)
}

// StorageKeyFor derives the storage key for a form identifier and owner
// without requiring a Form value. Server-side receivers use it to address the
// same snapshot a client cache writes.
func StorageKeyFor(formID string, owner Owner) (string, error) {
	if formID == "" {
		return "", ErrFormIDRequired
	}
	if owner.isZero() {
		return fmt.Sprintf("form/%s", formID), nil
	}
	switch owner.Kind {
	case OwnerKindUser, OwnerKindSession:
		if owner.ID == "" {
			return "", fmt.Errorf("formstate: missing owner id for kind %q", owner.Kind)
		}
		return fmt.Sprintf("%s/%s/form/%s", owner.Kind, owner.ID, formID), nil
	default:
		return "", fmt.Errorf("formstate: unsupported owner kind %q", owner.Kind)
	}
}
