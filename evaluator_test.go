package formstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSEvaluator(opts...)
		},
	},
}

type mapProgramCache struct {
	mu      sync.Mutex
	entries map[string]any
	hits    int
	misses  int
}

func newMapProgramCache() *mapProgramCache {
	return &mapProgramCache{entries: map[string]any{}}
}

func (c *mapProgramCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return value, ok
}

func (c *mapProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func loadRuleFixture[T any](t *testing.T, name string) T {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", name, err)
	}
	var fx T
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal fixture %q: %v", name, err)
	}
	return fx
}

func TestValidationRulesFixture(t *testing.T) {
	type expect struct {
		Value bool   `json:"value"`
		Err   string `json:"err"`
	}
	type testCase struct {
		Name   string            `json:"name"`
		Rule   string            `json:"rule"`
		Input  map[string]string `json:"input"`
		Expect expect            `json:"expect"`
		Notes  string            `json:"notes"`
	}
	type fixture struct {
		Description string            `json:"description"`
		Defaults    map[string]string `json:"defaults"`
		Cases       []testCase        `json:"cases"`
	}

	fx := loadRuleFixture[fixture](t, "validation_rules.json")

	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, nil)
			if evaluator == nil {
				t.Skip("evaluator unavailable in this build")
			}
			for _, tc := range fx.Cases {
				tc := tc
				t.Run(tc.Name, func(t *testing.T) {
					snapshot := Snapshot(fx.Defaults).Clone().Merge(nil)
					for name, value := range tc.Input {
						snapshot[name] = value
					}

					value, err := evaluator.Evaluate(RuleContext{
						Snapshot: snapshot,
						FormID:   "application",
					}, tc.Rule)

					if tc.Expect.Err != "" {
						if err == nil {
							t.Fatalf("expected error containing %q, got nil", tc.Expect.Err)
						}
						if !strings.Contains(err.Error(), tc.Expect.Err) {
							t.Fatalf("expected error containing %q, got %v", tc.Expect.Err, err)
						}
						return
					}
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					got, ok := value.(bool)
					if !ok {
						t.Fatalf("expected bool result, got %T", value)
					}
					if got != tc.Expect.Value {
						t.Fatalf("expected %v, got %v", tc.Expect.Value, got)
					}
				})
			}
		})
	}
}

func TestEvaluatorCustomFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("domainof", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("domainof expects one argument, got %d", len(args))
		}
		email, _ := args[0].(string)
		at := strings.LastIndex(email, "@")
		if at < 0 {
			return "", nil
		}
		return email[at+1:], nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	snapshot := Snapshot{"email": "ada@example.com"}

	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, registry)
			if evaluator == nil {
				t.Skip("evaluator unavailable in this build")
			}

			value, err := evaluator.Evaluate(RuleContext{Snapshot: snapshot}, `call("domainof", email) == "example.com"`)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if passed, ok := value.(bool); !ok || !passed {
				t.Fatalf("expected true, got %v (%T)", value, value)
			}
		})
	}
}

func TestExprProgramCacheReuse(t *testing.T) {
	cache := newMapProgramCache()
	evaluator := NewExprEvaluator(ExprWithProgramCache(cache))

	ctx := RuleContext{Snapshot: Snapshot{"name": "Ada"}}
	for i := 0; i < 3; i++ {
		if _, err := evaluator.Evaluate(ctx, `name != ""`); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.misses != 1 {
		t.Fatalf("expected single compile miss, got %d", cache.misses)
	}
	if cache.hits != 2 {
		t.Fatalf("expected cached program reused, hits=%d", cache.hits)
	}
}

func TestRuleFailureCarriesEvaluationMetadata(t *testing.T) {
	st := newCountingStore()
	form := newTestForm(t, WithRule(Rule{Name: "broken", Expr: `call("missing")`}))

	cache, err := NewCache(form, st, WithCustomFunction("other", func(...any) (any, error) { return true, nil }))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer cache.Close()

	err = cache.Submit(context.Background(), func(context.Context, Snapshot) error { return nil })
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected expr engine, got %q", evalErr.Engine)
	}
	if evalErr.Expr != `call("missing")` {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Form != "application" {
		t.Fatalf("expected form metadata, got %q", evalErr.Form)
	}
}

func TestEvaluatorLoggerObservesRuleRuns(t *testing.T) {
	st := newCountingStore()
	form := newTestForm(t, WithRule(Rule{Name: "email_present", Expr: `email != ""`}))

	var events []EvaluatorLogEvent
	cache, err := NewCache(form, st, WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer cache.Close()

	form.SetValue("email", "ada@example.com")
	if err := cache.Submit(context.Background(), func(context.Context, Snapshot) error { return nil }); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected one evaluation logged, got %d", len(events))
	}
	event := events[0]
	if event.Engine != "expr" {
		t.Fatalf("expected expr engine, got %q", event.Engine)
	}
	if event.Expr != `email != ""` || event.Form != "application" {
		t.Fatalf("unexpected event metadata: %+v", event)
	}
	if event.Duration < 0 || event.Duration > time.Minute {
		t.Fatalf("implausible duration: %v", event.Duration)
	}
	if event.Err != nil {
		t.Fatalf("unexpected evaluation error: %v", event.Err)
	}
}
