package remote

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	formstate "github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/pkg/store"
)

// Reserved field names the handler strips from the snapshot payload.
const (
	DefaultOwnerKindField = "_owner_kind"
	DefaultOwnerIDField   = "_owner_id"
)

// ErrStoreRequired is returned when a handler is built without a backing store.
var ErrStoreRequired = errors.New("remote: snapshot store must be provided")

// Handler receives form-encoded snapshot posts and persists them. It is the
// server half of the Client in this package: one POST per debounced save,
// last write wins.
type Handler struct {
	store   store.Store[formstate.Snapshot]
	idField string
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// HandlerWithFormIDField overrides the field name that carries the form ID.
// It must match the client's configuration.
func HandlerWithFormIDField(name string) HandlerOption {
	return func(h *Handler) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			h.idField = trimmed
		}
	}
}

// NewHandler builds the receiving endpoint over the given store.
func NewHandler(st store.Store[formstate.Snapshot], opts ...HandlerOption) (*Handler, error) {
	if st == nil {
		return nil, ErrStoreRequired
	}
	handler := &Handler{
		store:   st,
		idField: DefaultFormIDField,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler, nil
}

// ServeHTTP decodes the posted form into a snapshot and saves it under the
// key derived from the posted form ID and optional owner fields.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form payload", http.StatusBadRequest)
		return
	}

	formID := strings.TrimSpace(r.PostForm.Get(h.idField))
	if formID == "" {
		http.Error(w, "missing form id", http.StatusBadRequest)
		return
	}

	owner := formstate.Owner{
		Kind: strings.TrimSpace(r.PostForm.Get(DefaultOwnerKindField)),
		ID:   strings.TrimSpace(r.PostForm.Get(DefaultOwnerIDField)),
	}
	key, err := formstate.StorageKeyFor(formID, owner)
	if err != nil {
		http.Error(w, "invalid form identity", http.StatusBadRequest)
		return
	}

	snapshot := make(formstate.Snapshot, len(r.PostForm))
	for name, values := range r.PostForm {
		if name == h.idField || name == DefaultOwnerKindField || name == DefaultOwnerIDField {
			continue
		}
		if len(values) == 0 {
			continue
		}
		snapshot[name] = values[0]
	}

	meta := store.Meta{SnapshotID: uuid.NewString()}
	if _, err := h.store.Save(r.Context(), key, snapshot, meta); err != nil {
		http.Error(w, "failed to persist snapshot", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
