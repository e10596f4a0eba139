package dsl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1homsi/govern/internal/ir"
	"github.com/1homsi/govern/internal/registry"
)

func TestParseBasicForbidRule(t *testing.T) {
	src := `forbid(
		rule: "no-unsanitized-sink",
		severity: critical,
		description: "taint reaches a sink without sanitization"
	) on {
		exists(Fact{ type: TaintSource, flow_id: $f })
		&& exists(Fact{ type: TaintSink, consumes_flow: $f })
		&& !exists(Fact{ type: Sanitization, sanitizes_flow: $f, effective: true })
	}`

	r, err := Parse(src, nil)
	require.NoError(t, err)
	assert.Equal(t, "no-unsanitized-sink", r.ID)
	assert.Equal(t, Forbid, r.Kind)
	assert.Equal(t, ir.SeverityCritical, r.Severity)

	and, ok := r.Condition.(*And)
	require.True(t, ok, "top condition should be a conjunction")
	require.Len(t, and.Operands, 3)

	_, ok = and.Operands[0].(*FactExists)
	assert.True(t, ok)
	not, ok := and.Operands[2].(*Not)
	require.True(t, ok)
	_, ok = not.Operand.(*FactExists)
	assert.True(t, ok)

	vars := Variables(r.Condition)
	assert.ElementsMatch(t, []string{"f"}, vars)
}

func TestParsePermitAndOrPrecedence(t *testing.T) {
	src := `permit(rule: "allow-known-safe-sinks") on {
		exists(Fact{ type: TaintSink, category: "SqlQuery" }) || exists(Fact{ type: TaintSink, category: "Network" })
	}`
	r, err := Parse(src, nil)
	require.NoError(t, err)
	or, ok := r.Condition.(*Or)
	require.True(t, ok)
	assert.Len(t, or.Operands, 2)
}

func TestParseMissingRuleID(t *testing.T) {
	_, err := Parse(`forbid(severity: major) on { exists(Fact{ type: TaintSink }) }`, nil)
	require.Error(t, err)
}

func TestUnknownFactTypeSuggestsClosestCore(t *testing.T) {
	_, err := Parse(`forbid(rule: "r1") on { exists(Fact{ type: TaintSorce }) }`, nil)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, UnknownFactType, derr.Kind)
	assert.Equal(t, "TaintSource", derr.Suggestion)
}

func TestUnknownFieldSuggestsClosestField(t *testing.T) {
	_, err := Parse(`forbid(rule: "r1") on { exists(Fact{ type: TaintSink, functoin: "x" }) }`, nil)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, UnknownField, derr.Kind)
	assert.Equal(t, "function", derr.Suggestion)
}

func TestCustomFactTypeResolvedAgainstRegistry(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(registry.FactTypeSchema{
		Discriminant: "infra::terraform::public_bucket",
		Fields: map[string]registry.FieldSchema{
			"bucket_name": {Type: registry.FieldString, Required: true},
		},
	}))

	r, err := Parse(`forbid(rule: "no-public-buckets") on {
		exists(Fact{ type: "infra::terraform::public_bucket", bucket_name: $b })
	}`, reg)
	require.NoError(t, err)
	fe, ok := r.Condition.(*FactExists)
	require.True(t, ok)
	assert.Equal(t, ir.KindCustom, fe.Kind)
	assert.Equal(t, "infra::terraform::public_bucket", fe.Discriminant)
}

func TestCustomFactTypeUnknownWithoutRegistration(t *testing.T) {
	reg := registry.New()
	_, err := Parse(`forbid(rule: "r1") on { exists(Fact{ type: "infra::unregistered" }) }`, reg)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, UnknownFactType, derr.Kind)
}

func TestComparisonTypeMismatchOnCoreField(t *testing.T) {
	_, err := Parse(`forbid(rule: "r1") on { exists(Fact{ type: TaintSource, confidence: "high" }) }`, nil)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, TypeMismatch, derr.Kind)
}

func TestComparisonTypeMismatchOnCustomField(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(registry.FactTypeSchema{
		Discriminant: "infra::terraform::public_bucket",
		Fields: map[string]registry.FieldSchema{
			"bucket_name": {Type: registry.FieldString, Required: true},
		},
	}))
	_, err := Parse(`forbid(rule: "r1") on {
		exists(Fact{ type: "infra::terraform::public_bucket", bucket_name: 5 })
	}`, reg)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, TypeMismatch, derr.Kind)
}

func TestComparisonAgainstSeverityFieldAcceptsString(t *testing.T) {
	_, err := Parse(`forbid(rule: "r1") on { exists(Fact{ type: TaintSink, severity: "critical" }) }`, nil)
	require.NoError(t, err)
}

func TestParseRejectsOversizedSource(t *testing.T) {
	huge := "forbid(rule: \"" + strings.Repeat("x", MaxSourceBytes+1) + "\") on { exists(Fact{ type: TaintSink }) }"
	_, err := Parse(huge, nil)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, SizeLimitExceeded, derr.Kind)
}

func TestParseAllSplitsMultipleRules(t *testing.T) {
	src := `
	forbid(rule: "r1") on { exists(Fact{ type: TaintSink }) }
	permit(rule: "r2") on { exists(Fact{ type: TaintSource }) }
	`
	rules, err := ParseAll(src, nil)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r1", rules[0].ID)
	assert.Equal(t, "r2", rules[1].ID)
}
