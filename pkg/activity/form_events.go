package activity

import (
	"strings"
	"time"
)

// FormEventInput describes the common fields for form lifecycle events.
type FormEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	FormID     string
	StorageKey string
	SnapshotID string
	Fields     []string
	Endpoint   string
	Channel    string
	Recipients []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildFormSavedEvent constructs a normalized event for a debounced save.
func BuildFormSavedEvent(input FormEventInput) Event {
	return buildFormEvent("form.saved", input)
}

// BuildFormRestoredEvent constructs a normalized event for a restore pass
// that found persisted state.
func BuildFormRestoredEvent(input FormEventInput) Event {
	return buildFormEvent("form.restored", input)
}

// BuildFormSubmittedEvent constructs a normalized event for a successful
// submission.
func BuildFormSubmittedEvent(input FormEventInput) Event {
	return buildFormEvent("form.submitted", input)
}

// BuildFormClearedEvent constructs a normalized event for snapshot cleanup.
func BuildFormClearedEvent(input FormEventInput) Event {
	return buildFormEvent("form.cleared", input)
}

// BuildFormSyncedEvent constructs a normalized event for a successful
// remote sync.
func BuildFormSyncedEvent(input FormEventInput) Event {
	return buildFormEvent("form.synced", input)
}

func buildFormEvent(verb string, input FormEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.StorageKey != "" {
		metadata = ensureMetadata(metadata)
		metadata["storage_key"] = input.StorageKey
	}
	if input.SnapshotID != "" {
		metadata = ensureMetadata(metadata)
		metadata["snapshot_id"] = input.SnapshotID
	}
	if len(input.Fields) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["fields"] = append([]string{}, input.Fields...)
	}
	if input.Endpoint != "" {
		metadata = ensureMetadata(metadata)
		metadata["endpoint"] = input.Endpoint
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.FormID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.StorageKey)
	}
	if objectID == "" {
		objectID = "form"
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: "form",
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Recipients: recipients,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
