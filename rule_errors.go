package casefile

import (
	"errors"
	"fmt"
	"strings"
)

// RuleError captures engine metadata alongside the originating error.
type RuleError struct {
	Engine  string
	Expr    string
	FieldID string
	Err     error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("casefile: %s rule %s field=%s: %v", e.Engine, describeExpression(e.Expr), e.FieldID, e.Err)
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEngineError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "casefile:") {
		return err
	}
	return fmt.Errorf("casefile: %s rule engine: %w", engine, err)
}

func wrapRuleError(engine, expr, fieldID string, err error) error {
	if err == nil {
		return nil
	}

	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		if ruleErr.Engine == "" {
			ruleErr.Engine = engine
		}
		if ruleErr.Expr == "" {
			ruleErr.Expr = expr
		}
		if ruleErr.FieldID == "" {
			ruleErr.FieldID = fieldID
		}
		return ruleErr
	}

	return &RuleError{
		Engine:  engine,
		Expr:    expr,
		FieldID: fieldID,
		Err:     err,
	}
}
