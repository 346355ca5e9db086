package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/swatch-db/csv-validate/pkg/converter"
	"github.com/swatch-db/csv-validate/pkg/model"
)

// recordCheck accumulates the reports for one cleaned record
type recordCheck struct {
	v       *Validator
	rec     model.Record
	row     int
	reports []model.ValidationReport
}

func (r *recordCheck) fail(rule model.Rule, msg string, value interface{}, path, frag string) {
	r.reports = append(r.reports, model.ValidationReport{
		Row:      r.row,
		Rule:     rule,
		Message:  msg,
		Value:    value,
		Path:     path,
		Fragment: frag,
	})
}

// header reports columns the schema does not declare
func (r *recordCheck) header() {
	unexpected := lo.Filter(sortedKeys(r.rec), func(name string, _ int) bool {
		return !r.v.schema.HasColumn(name)
	})
	if len(unexpected) == 0 {
		return
	}

	quoted := lo.Map(unexpected, func(name string, _ int) string { return repr(name) })
	verb := "was"
	if len(unexpected) > 1 {
		verb = "were"
	}
	r.fail(model.RuleHeader,
		fmt.Sprintf("Additional properties are not allowed (%s %s unexpected)", strings.Join(quoted, ", "), verb),
		r.rec, rootPath, r.v.headerFragment)
}

func (r *recordCheck) required() {
	for _, name := range r.v.schema.Required {
		if _, ok := r.rec[name]; !ok {
			r.fail(model.RuleRequired,
				fmt.Sprintf("%s is a required property", repr(name)),
				r.rec, rootPath, r.v.requiredFragment)
		}
	}
}

// dependencies reports, for each present column with dependencies, every
// dependency column that is absent
func (r *recordCheck) dependencies() {
	names := lo.Keys(r.v.schema.Dependencies)
	sort.Strings(names)

	for _, name := range names {
		if _, present := r.rec[name]; !present {
			continue
		}
		for _, dep := range r.v.schema.Dependencies[name] {
			if _, ok := r.rec[dep]; !ok {
				r.fail(model.RuleDependencies,
					fmt.Sprintf("%s is a dependency of %s", repr(dep), repr(name)),
					r.rec, rootPath, r.v.dependencyFrags[name])
			}
		}
	}
}

// column runs the constraint checks for one declared column. A value of the
// wrong type fails the type rule only; type-specific keywords ignore it.
func (r *recordCheck) column(prop *model.Property, value interface{}) {
	path := rootPath + "." + prop.Name
	frag := r.v.columnFragments[prop.Name]

	if !hasType(value, prop.Type) {
		r.fail(model.RuleType,
			fmt.Sprintf("%s is not of type %s", repr(value), repr(prop.Type.String())),
			value, path, frag)
		return
	}

	if prop.Enum != nil && !lo.ContainsBy(prop.Enum, func(e interface{}) bool { return e == value }) {
		r.fail(model.RuleEnum,
			fmt.Sprintf("%s is not one of %s", repr(value), reprList(prop.Enum)),
			value, path, frag)
	}

	switch v := value.(type) {
	case string:
		r.text(prop, v, path, frag)
	case float64:
		r.number(prop, v, path, frag)
	}
}

func (r *recordCheck) text(prop *model.Property, s, path, frag string) {
	length := utf8.RuneCountInString(s)
	if prop.MinLength != nil && length < *prop.MinLength {
		r.fail(model.RuleMinLength, fmt.Sprintf("%s is too short", repr(s)), s, path, frag)
	}
	if prop.MaxLength != nil && length > *prop.MaxLength {
		r.fail(model.RuleMaxLength, fmt.Sprintf("%s is too long", repr(s)), s, path, frag)
	}
	if prop.Pattern != nil && !prop.Pattern.MatchString(s) {
		raw, _ := prop.Raw["pattern"].(string)
		r.fail(model.RulePattern, fmt.Sprintf("%s does not match %s", repr(s), repr(raw)), s, path, frag)
	}
	if prop.Format == "date" && !converter.IsDate(s) {
		r.fail(model.RuleFormat, fmt.Sprintf("%s is not a %s", repr(s), repr(prop.Format)), s, path, frag)
	}
}

func (r *recordCheck) number(prop *model.Property, f float64, path, frag string) {
	if prop.Minimum != nil && f < *prop.Minimum {
		r.fail(model.RuleMinimum,
			fmt.Sprintf("%s is less than the minimum of %s", repr(f), repr(*prop.Minimum)),
			f, path, frag)
	}
	if prop.Maximum != nil && f > *prop.Maximum {
		r.fail(model.RuleMaximum,
			fmt.Sprintf("%s is greater than the maximum of %s", repr(f), repr(*prop.Maximum)),
			f, path, frag)
	}
}

func hasType(value interface{}, t model.ColumnType) bool {
	switch value.(type) {
	case string:
		return t == model.ColumnTypeText
	case float64:
		return t == model.ColumnTypeNumber
	default:
		return false
	}
}
