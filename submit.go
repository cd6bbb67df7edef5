package formstate

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/activity"
)

// SubmitFunc delivers the validated snapshot to its destination. A nil error
// marks the submission successful and clears the persisted snapshot.
type SubmitFunc func(ctx context.Context, snapshot Snapshot) error

// RuleViolation reports one validation rule that evaluated to false.
type RuleViolation struct {
	Rule    string
	Message string
}

// ValidationError aggregates every rule violation found during a submit.
type ValidationError struct {
	FormID     string
	Violations []RuleViolation
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	names := make([]string, 0, len(e.Violations))
	for _, violation := range e.Violations {
		names = append(names, violation.Rule)
	}
	return fmt.Sprintf("formstate: form %q failed validation: %s", e.FormID, strings.Join(names, ", "))
}

// Submit validates the current snapshot, delivers it via fn, and on success
// deletes the persisted snapshot. On validation failure or delivery error
// the snapshot is deliberately retained so the user's input survives a
// retry.
func (c *Cache) Submit(ctx context.Context, fn SubmitFunc) error {
	if fn == nil {
		return fmt.Errorf("formstate: submit function is required")
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	snapshot := c.form.Snapshot()
	if err := c.validate(snapshot); err != nil {
		c.notifyRetry()
		return err
	}

	if err := fn(ctx, snapshot); err != nil {
		c.notifyRetry()
		return fmt.Errorf("formstate: submit %q: %w", c.form.ID(), err)
	}

	// A pending save firing after a successful submit would resurrect the
	// draft, so cancel it before clearing. Advancing the generation also
	// covers a fire already past its timer and waiting on the mutex.
	c.mu.Lock()
	c.cancelPendingLocked()
	c.mu.Unlock()

	if err := c.store.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("formstate: clear %q: %w", c.key, err)
	}
	c.emit(ctx, activity.BuildFormSubmittedEvent(c.eventInput("", snapshot)))
	c.emit(ctx, activity.BuildFormClearedEvent(c.eventInput("", snapshot)))
	return nil
}

func (c *Cache) validate(snapshot Snapshot) error {
	rules := c.form.Rules()
	if len(rules) == 0 {
		return nil
	}

	var violations []RuleViolation
	for _, rule := range rules {
		ctx := RuleContext{
			Snapshot: snapshot,
			FormID:   c.form.ID(),
		}
		value, err := c.evaluateRule(ctx, rule.Expr)
		if err != nil {
			return err
		}
		passed, ok := value.(bool)
		if !ok {
			return fmt.Errorf("formstate: rule %q on form %q returned %T, want bool", rule.Name, c.form.ID(), value)
		}
		if !passed {
			violations = append(violations, RuleViolation{Rule: rule.Name, Message: rule.Message})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{FormID: c.form.ID(), Violations: violations}
}
