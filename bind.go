package formstate

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-formstate/internal/hydrate"
)

type bindConfig struct {
	strict bool
	coerce bool
}

// BindOption configures snapshot-to-model binding.
type BindOption func(*bindConfig)

// BindStrict rejects snapshot fields the model does not declare.
func BindStrict() BindOption {
	return func(cfg *bindConfig) {
		cfg.strict = true
	}
}

// BindWithoutCoercion keeps every snapshot value as a string instead of
// interpreting numeric and boolean literals.
func BindWithoutCoercion() BindOption {
	return func(cfg *bindConfig) {
		cfg.coerce = false
	}
}

// BindModel decodes a snapshot into a typed model. Field names containing
// dots address nested struct fields, matching the names DeriveFields
// produces. Values are captured as strings; by default literals that read as
// JSON numbers or booleans are coerced before decoding.
func BindModel[T any](f *Form, snapshot Snapshot, opts ...BindOption) (T, error) {
	var zero T
	if f == nil {
		return zero, ErrFormIDRequired
	}
	key, err := f.StorageKey()
	if err != nil {
		return zero, err
	}

	cfg := bindConfig{coerce: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	payload := map[string]any{}
	for name, value := range snapshot {
		var entry any = value
		if cfg.coerce {
			entry = coerceLiteral(value)
		}
		assignPath(payload, name, entry)
	}

	decoderOpts := []hydrate.DecoderOption[T]{}
	if cfg.strict {
		decoderOpts = append(decoderOpts, hydrate.WithDisallowUnknownFields[T]())
	}

	ctx := hydrate.Context{FormID: f.ID(), StorageKey: key}
	return hydrate.NewDecoder[T](decoderOpts...).Decode(ctx, payload)
}

// coerceLiteral interprets a field value as a JSON number or boolean when it
// reads as one, leaving everything else as the original string. Leading-zero
// values such as postal codes stay strings because they are not valid JSON
// numbers.
func coerceLiteral(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	var out any
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return value
	}
	switch out.(type) {
	case float64, bool:
		return out
	default:
		return value
	}
}

func assignPath(payload map[string]any, name string, value any) {
	parts := strings.Split(name, ".")
	current := payload
	for i, part := range parts {
		if i == len(parts)-1 {
			current[part] = value
			return
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
}
