package formstate

// ProgramCache stores compiled rule programs keyed by expression strings.
// Implementations must be safe for concurrent use.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
