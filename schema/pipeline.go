package schema

import (
	"context"
	"fmt"
)

// Result is a rule's verdict. A zero Result is a failure with no
// message; use OK and Fail.
type Result struct {
	Valid   bool
	Message string
}

// OK is a passing result.
func OK() Result { return Result{Valid: true} }

// Fail is a failing result with a rule-level message.
func Fail(message string) Result { return Result{Valid: false, Message: message} }

// Rule is a synchronous business rule over a whole record.
type Rule struct {
	ID    string
	Check func(record map[string]any) Result
}

// AsyncRule is a context-aware rule, typically an external lookup. A
// returned error counts as a failure of this rule only.
type AsyncRule struct {
	ID    string
	Check func(ctx context.Context, record map[string]any) (Result, error)
}

// Messages resolves failure messages. Precedence: locale table, then
// the rule's own message, then Rules, then Default, then a generic
// fallback.
type Messages struct {
	Default string                       `yaml:"default"`
	Rules   map[string]string            `yaml:"rules"`
	Locales map[string]map[string]string `yaml:"locales"`
}

// Pipeline runs business rules after structural validation.
type Pipeline struct {
	CrossField []Rule
	Custom     []Rule
	Async      []AsyncRule
	Messages   Messages
}

// Run executes every rule and returns a *RuleError aggregating all
// failures, or nil. locale selects the message table.
func (p *Pipeline) Run(ctx context.Context, record map[string]any, locale string) error {
	var failures []Failure

	runSync := func(rules []Rule) {
		for _, rule := range rules {
			result := p.runRecovered(rule, record)
			if !result.Valid {
				failures = append(failures, Failure{
					RuleID:  rule.ID,
					Message: p.message(locale, rule.ID, result.Message),
				})
			}
		}
	}
	runSync(p.CrossField)
	runSync(p.Custom)

	for _, rule := range p.Async {
		result, err := p.runAsyncRecovered(ctx, rule, record)
		if err != nil {
			failures = append(failures, Failure{
				RuleID:  rule.ID,
				Message: p.message(locale, rule.ID, err.Error()),
			})
			continue
		}
		if !result.Valid {
			failures = append(failures, Failure{
				RuleID:  rule.ID,
				Message: p.message(locale, rule.ID, result.Message),
			})
		}
	}

	if len(failures) > 0 {
		return &RuleError{Failures: failures}
	}
	return nil
}

// runRecovered folds a panicking rule into a plain failure so one bad
// validator cannot mask the rest.
func (p *Pipeline) runRecovered(rule Rule, record map[string]any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Fail(fmt.Sprintf("rule panicked: %v", r))
		}
	}()
	return rule.Check(record)
}

func (p *Pipeline) runAsyncRecovered(ctx context.Context, rule AsyncRule, record map[string]any) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = Fail(fmt.Sprintf("rule panicked: %v", r))
			err = nil
		}
	}()
	return rule.Check(ctx, record)
}

func (p *Pipeline) message(locale, ruleID, ruleMessage string) string {
	if locale != "" {
		if table, ok := p.Messages.Locales[locale]; ok {
			if msg, ok := table[ruleID]; ok {
				return msg
			}
		}
	}
	if ruleMessage != "" {
		return ruleMessage
	}
	if msg, ok := p.Messages.Rules[ruleID]; ok {
		return msg
	}
	if p.Messages.Default != "" {
		return p.Messages.Default
	}
	return fmt.Sprintf("validation failed for rule %q", ruleID)
}
