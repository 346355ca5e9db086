package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Rule identifies the check that rejected a record
type Rule string

const (
	RuleHeader       Rule = "header"
	RuleRequired     Rule = "required"
	RuleDependencies Rule = "dependencies"
	RuleType         Rule = "type"
	RuleEnum         Rule = "enum"
	RuleMinLength    Rule = "minLength"
	RuleMaxLength    Rule = "maxLength"
	RulePattern      Rule = "pattern"
	RuleFormat       Rule = "format"
	RuleMinimum      Rule = "minimum"
	RuleMaximum      Rule = "maximum"
	RuleInternal     Rule = "internal"
)

// FailureKind groups rules into the validation failure taxonomy
type FailureKind string

const (
	FailureHeader           FailureKind = "HeaderError"
	FailureRequiredProperty FailureKind = "RequiredPropertyError"
	FailureDependency       FailureKind = "DependencyError"
	FailureConstraint       FailureKind = "ConstraintError"
	FailureInternal         FailureKind = "InternalError"
)

// Kind returns the failure kind a rule belongs to
func (r Rule) Kind() FailureKind {
	switch r {
	case RuleHeader:
		return FailureHeader
	case RuleRequired:
		return FailureRequiredProperty
	case RuleDependencies:
		return FailureDependency
	case RuleInternal:
		return FailureInternal
	default:
		return FailureConstraint
	}
}

// ValidationReport describes one failed check on one record. Row is the
// absolute 1-indexed data row in the original file.
type ValidationReport struct {
	Row      int
	Rule     Rule
	Message  string
	Value    interface{}
	Path     string
	Fragment string
}

// String renders the report in the terminal format, without the trailing
// blank separator line
func (r ValidationReport) String() string {
	return strings.Join([]string{
		fmt.Sprintf("row: %d", r.Row),
		fmt.Sprintf("%s validator failed because: %s", r.Rule, r.Message),
		"offending json element:",
		FormatValue(r.Value),
		fmt.Sprintf("json path: %s", r.Path),
		"applicable schema:",
		r.Fragment,
	}, "\n")
}

// FormatValue renders a record value the way it appears in reports
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	case float64:
		return FormatNumber(val)
	case Record:
		return formatRecord(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// FormatNumber renders a number in plain decimal notation, switching to an
// exponent only for magnitudes of 1e21 and above
func FormatNumber(f float64) string {
	if math.Abs(f) >= 1e21 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatRecord(rec Record) string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%q: %s", k, FormatValue(rec[k])))
	}
	sb.WriteString("}")
	return sb.String()
}

// RunResult is the externally observable outcome of a validation run
type RunResult struct {
	RunID         string
	RowsExpected  int
	RowsProcessed int
	Failures      int
	Printed       int
	EarlyExit     bool
	Warnings      []string
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// Complete stamps the end time and duration
func (r *RunResult) Complete() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// AddWarning attaches a non-fatal observation to the result
func (r *RunResult) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}
