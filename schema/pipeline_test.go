package schema_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/strata/schema"
)

func failures(t *testing.T, err error) map[string]string {
	t.Helper()
	var rerr *schema.RuleError
	require.ErrorAs(t, err, &rerr)
	out := make(map[string]string, len(rerr.Failures))
	for _, f := range rerr.Failures {
		out[f.RuleID] = f.Message
	}
	return out
}

func TestPipelineCollectsAllFailures(t *testing.T) {
	p := &schema.Pipeline{
		CrossField: []schema.Rule{
			{ID: "dates", Check: func(map[string]any) schema.Result { return schema.Fail("end before start") }},
		},
		Custom: []schema.Rule{
			{ID: "quota", Check: func(map[string]any) schema.Result { return schema.OK() }},
			{ID: "banned", Check: func(map[string]any) schema.Result { return schema.Fail("name is banned") }},
		},
	}

	err := p.Run(context.Background(), map[string]any{}, "")
	got := failures(t, err)
	assert.Len(t, got, 2, "passing rules contribute nothing, failing rules all surface")
	assert.Equal(t, "end before start", got["dates"])
	assert.Equal(t, "name is banned", got["banned"])
}

func TestPipelineAsyncRules(t *testing.T) {
	p := &schema.Pipeline{
		Async: []schema.AsyncRule{
			{ID: "remote", Check: func(context.Context, map[string]any) (schema.Result, error) {
				return schema.Result{}, errors.New("lookup timed out")
			}},
			{ID: "ok", Check: func(context.Context, map[string]any) (schema.Result, error) {
				return schema.OK(), nil
			}},
		},
	}

	err := p.Run(context.Background(), map[string]any{}, "")
	got := failures(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lookup timed out", got["remote"], "an async error fails that rule only")
}

func TestPipelinePanicBecomesFailure(t *testing.T) {
	p := &schema.Pipeline{
		Custom: []schema.Rule{
			{ID: "boom", Check: func(map[string]any) schema.Result { panic("nil deref") }},
			{ID: "after", Check: func(map[string]any) schema.Result { return schema.Fail("also bad") }},
		},
	}

	err := p.Run(context.Background(), map[string]any{}, "")
	got := failures(t, err)
	assert.Contains(t, got["boom"], "nil deref")
	assert.Equal(t, "also bad", got["after"], "rules after a panic still run")
}

func TestPipelineMessagePrecedence(t *testing.T) {
	messages := schema.Messages{
		Default: "record invalid",
		Rules:   map[string]string{"quota": "quota exceeded"},
		Locales: map[string]map[string]string{
			"de": {"quota": "Kontingent erschöpft"},
		},
	}
	rule := func(msg string) schema.Rule {
		return schema.Rule{ID: "quota", Check: func(map[string]any) schema.Result {
			return schema.Result{Valid: false, Message: msg}
		}}
	}

	tests := []struct {
		name    string
		locale  string
		ruleMsg string
		want    string
	}{
		{"locale wins", "de", "over quota", "Kontingent erschöpft"},
		{"rule message next", "", "over quota", "over quota"},
		{"rule table next", "", "", "quota exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &schema.Pipeline{Custom: []schema.Rule{rule(tt.ruleMsg)}, Messages: messages}
			err := p.Run(context.Background(), map[string]any{}, tt.locale)
			assert.Equal(t, tt.want, failures(t, err)["quota"])
		})
	}

	t.Run("default message", func(t *testing.T) {
		p := &schema.Pipeline{
			Custom:   []schema.Rule{rule("")},
			Messages: schema.Messages{Default: "record invalid"},
		}
		err := p.Run(context.Background(), map[string]any{}, "")
		assert.Equal(t, "record invalid", failures(t, err)["quota"])
	})

	t.Run("generic fallback", func(t *testing.T) {
		p := &schema.Pipeline{Custom: []schema.Rule{rule("")}}
		err := p.Run(context.Background(), map[string]any{}, "")
		assert.Contains(t, failures(t, err)["quota"], "quota")
	})
}

func TestPipelineNoRules(t *testing.T) {
	p := &schema.Pipeline{}
	assert.NoError(t, p.Run(context.Background(), map[string]any{}, ""))
}
