package formstate

import "time"

// Rule is a validation expression evaluated against a form snapshot before
// submission. The expression must yield a boolean; false blocks the submit
// and keeps the persisted snapshot so input survives a retry.
type Rule struct {
	Name    string
	Expr    string
	Message string
}

// RuleContext carries inputs needed when evaluating a rule expression.
type RuleContext struct {
	Snapshot any
	FormID   string
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) formLabel() string {
	if ctx.FormID != "" {
		return ctx.FormID
	}
	return "unknown"
}

// snapshotEnv flattens the snapshot into evaluator bindings. Field values are
// exposed both as top-level names and under "fields" so expressions can reach
// names that collide with the built-in bindings.
func (ctx RuleContext) snapshotEnv() map[string]any {
	switch snap := ctx.Snapshot.(type) {
	case Snapshot:
		return snap.binding()
	case map[string]string:
		return Snapshot(snap).binding()
	case map[string]any:
		return snap
	default:
		return map[string]any{}
	}
}

// Evaluator executes rule expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}
