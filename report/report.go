// Package report declares the filters of the admin reports and binds request
// parameters to SQL conditions.
package report

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"ninetofiver/internal/timeutil"
)

var ErrUnknownReport = errors.New("unknown report")

// Model names the base record set a report filters.
type Model string

const (
	ModelTimesheet           Model = "timesheet"
	ModelLeaveDate           Model = "leave_date"
	ModelUser                Model = "user"
	ModelConsultancyContract Model = "consultancycontract"
	ModelProjectContract     Model = "projectcontract"
	ModelSupportContract     Model = "supportcontract"
	ModelTraining            Model = "training"
)

type Kind string

const (
	KindChoice              Kind = "choice"
	KindMultipleChoice      Kind = "multiple_choice"
	KindModelChoice         Kind = "model_choice"
	KindModelMultipleChoice Kind = "model_multiple_choice"
	KindDate                Kind = "date"
	KindText                Kind = "text"
)

type Lookup string

const (
	LookupExact     Lookup = "exact"
	LookupIn        Lookup = "in"
	LookupGTE       Lookup = "gte"
	LookupLTE       Lookup = "lte"
	LookupIContains Lookup = "icontains"
)

// Choice sources resolved through a ChoiceSource.
const (
	SourceActiveUsers            = "active_users"
	SourceGroups                 = "groups"
	SourceCompanies              = "companies"
	SourceInternalCompanies      = "internal_companies"
	SourceContractGroups         = "contract_groups"
	SourceActiveContracts        = "active_contracts"
	SourceActiveProjectContracts = "active_project_contracts"
	SourceTimesheetYears         = "timesheet_years"
	SourceTimesheetMonths        = "timesheet_months"
)

type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ChoiceSource loads the choices of model backed filters.
type ChoiceSource interface {
	ReportChoices(ctx context.Context, source string) ([]Choice, error)
}

// Filter is one request parameter of a report.
//
// Field is the column expression the parameter is compared with. When Through
// is set, the comparison is wrapped into it at its %s verb, which lets a
// filter reach related rows through a subquery. Clauses maps choice values
// onto fixed conditions instead. Unbound parameters are validated but left to
// the report itself.
type Filter struct {
	Param      string            `json:"param"`
	Label      string            `json:"label"`
	Field      string            `json:"-"`
	Through    string            `json:"-"`
	Lookup     Lookup            `json:"lookup"`
	Kind       Kind              `json:"kind"`
	Choices    []Choice          `json:"choices,omitempty"`
	Source     string            `json:"source,omitempty"`
	Clauses    map[string]string `json:"-"`
	EmptyLabel string            `json:"empty_label,omitempty"`
	Initial    string            `json:"initial,omitempty"`
	Distinct   bool              `json:"distinct,omitempty"`
	Unbound    bool              `json:"unbound,omitempty"`
}

func (f Filter) multiple() bool {
	return f.Kind == KindMultipleChoice || f.Kind == KindModelMultipleChoice
}

func (f Filter) hasChoices() bool {
	switch f.Kind {
	case KindChoice, KindMultipleChoice, KindModelChoice, KindModelMultipleChoice:
		return true
	default:
		return false
	}
}

type FilterSet struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Model   Model    `json:"model"`
	Filters []Filter `json:"filters"`
}

// Query is a filter set bound to request parameters.
type Query struct {
	Set      FilterSet
	Clauses  []string
	Args     []any
	Values   map[string][]string
	Distinct bool
}

// Where joins the clauses with AND. It is empty without clauses.
func (q Query) Where() string {
	return strings.Join(q.Clauses, " AND ")
}

// Date returns the bound date of param, if any.
func (q Query) Date(param string) (time.Time, bool) {
	values := q.Values[param]
	if len(values) == 0 {
		return time.Time{}, false
	}
	parsed, err := timeutil.ParseDay(values[0], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// ValidationError collects per-parameter messages.
type ValidationError struct {
	Fields map[string][]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	params := make([]string, 0, len(e.Fields))
	for param := range e.Fields {
		params = append(params, param)
	}
	sort.Strings(params)

	parts := make([]string, 0, len(params))
	for _, param := range params {
		parts = append(parts, fmt.Sprintf("%s: %s", param, strings.Join(e.Fields[param], "; ")))
	}
	return "invalid report filters: " + strings.Join(parts, ", ")
}

func (e *ValidationError) add(param, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[param] = append(e.Fields[param], message)
}

// Find returns the filter set registered under name.
func Find(name string) (FilterSet, error) {
	for _, set := range sets {
		if set.Name == name {
			return set, nil
		}
	}
	return FilterSet{}, fmt.Errorf("%w: %q", ErrUnknownReport, name)
}

// Sets returns all filter sets ordered by name.
func Sets() []FilterSet {
	out := append([]FilterSet(nil), sets...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Describe returns the filters with model choices resolved.
func (fs FilterSet) Describe(ctx context.Context, source ChoiceSource) ([]Filter, error) {
	loader := newChoiceLoader(source)
	out := make([]Filter, 0, len(fs.Filters))
	for _, filter := range fs.Filters {
		if filter.Source != "" {
			choices, err := loader.load(ctx, filter.Source)
			if err != nil {
				return nil, err
			}
			filter.Choices = choices
		}
		out = append(out, filter)
	}
	return out, nil
}

// Bind validates values against the filter set. Blank and unknown parameters
// are ignored. Every invalid parameter is reported in a *ValidationError.
func (fs FilterSet) Bind(ctx context.Context, values url.Values, source ChoiceSource) (Query, error) {
	query := Query{Set: fs, Values: make(map[string][]string)}
	loader := newChoiceLoader(source)
	validation := &ValidationError{}

	for _, filter := range fs.Filters {
		raw := nonBlank(values[filter.Param])
		if len(raw) == 0 {
			continue
		}
		if !filter.multiple() {
			raw = raw[len(raw)-1:]
		}

		if filter.hasChoices() {
			allowed, err := loader.choicesOf(ctx, filter)
			if err != nil {
				return Query{}, err
			}
			invalid := false
			for _, value := range raw {
				if _, ok := allowed[value]; !ok {
					validation.add(filter.Param, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", value))
					invalid = true
				}
			}
			if invalid {
				continue
			}
		}
		if filter.Kind == KindDate {
			parsed, err := timeutil.ParseDay(raw[0], time.UTC)
			if err != nil {
				validation.add(filter.Param, "Enter a valid date.")
				continue
			}
			raw = []string{timeutil.FormatDay(parsed)}
		}

		query.Values[filter.Param] = raw
		if filter.Unbound {
			continue
		}

		clause, args := filter.clause(raw)
		if clause == "" {
			continue
		}
		query.Clauses = append(query.Clauses, clause)
		query.Args = append(query.Args, args...)
		if filter.Distinct {
			query.Distinct = true
		}
	}

	if len(validation.Fields) > 0 {
		return Query{}, validation
	}
	return query, nil
}

func (f Filter) clause(values []string) (string, []any) {
	if f.Clauses != nil {
		return f.Clauses[values[0]], nil
	}

	field := f.Field
	if f.Kind == KindDate {
		field = "date(" + field + ")"
	}

	var (
		condition string
		args      []any
	)
	switch f.Lookup {
	case LookupIn:
		placeholders := make([]string, 0, len(values))
		for _, value := range values {
			placeholders = append(placeholders, "?")
			args = append(args, argFor(value))
		}
		condition = fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", "))
	case LookupGTE:
		condition = field + " >= ?"
		args = append(args, argFor(values[0]))
	case LookupLTE:
		condition = field + " <= ?"
		args = append(args, argFor(values[0]))
	case LookupIContains:
		condition = "LOWER(" + field + ") LIKE ?"
		args = append(args, "%"+strings.ToLower(values[0])+"%")
	default:
		condition = field + " = ?"
		args = append(args, argFor(values[0]))
	}

	if f.Through != "" {
		condition = fmt.Sprintf(f.Through, condition)
	}
	return condition, args
}

func argFor(value string) any {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
		return parsed
	}
	return value
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

type choiceLoader struct {
	source ChoiceSource
	cache  map[string][]Choice
}

func newChoiceLoader(source ChoiceSource) *choiceLoader {
	return &choiceLoader{source: source, cache: make(map[string][]Choice)}
}

func (l *choiceLoader) load(ctx context.Context, name string) ([]Choice, error) {
	if choices, ok := l.cache[name]; ok {
		return choices, nil
	}
	if l.source == nil {
		return nil, fmt.Errorf("no choice source for %q", name)
	}
	choices, err := l.source.ReportChoices(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s choices: %w", name, err)
	}
	l.cache[name] = choices
	return choices, nil
}

func (l *choiceLoader) choicesOf(ctx context.Context, filter Filter) (map[string]struct{}, error) {
	choices := filter.Choices
	if filter.Source != "" {
		loaded, err := l.load(ctx, filter.Source)
		if err != nil {
			return nil, err
		}
		choices = loaded
	}
	allowed := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		allowed[choice.Value] = struct{}{}
	}
	return allowed, nil
}
