package disruptions

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// FilterEnv is what a filter expression can see of a disruption, for
// instance `Contributor == "shortterm.tr_sncf"` or `"works" in Tags`.
type FilterEnv struct {
	ID          string
	Contributor string
	Reference   string
	RTLevel     string
	Tags        []string
	Effects     []string
}

// Filter decides which incoming disruptions are applied.
type Filter struct {
	source  string
	program *vm.Program
}

func NewFilter(source string) (*Filter, error) {
	program, err := expr.Compile(source, expr.Env(FilterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling disruption filter %q: %w", source, err)
	}

	return &Filter{source: source, program: program}, nil
}

func (f *Filter) String() string {
	return f.source
}

func (f *Filter) Match(record *DisruptionRecord) (bool, error) {
	env := FilterEnv{
		ID:          record.ID,
		Contributor: record.Contributor,
		Reference:   record.Reference,
		RTLevel:     record.RTLevel,
	}
	for _, tag := range record.Tags {
		env.Tags = append(env.Tags, tag.Name)
	}
	for _, impact := range record.Impacts {
		if impact.Severity.Effect != "" {
			env.Effects = append(env.Effects, impact.Severity.Effect)
		}
	}

	output, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("running disruption filter: %w", err)
	}

	return output.(bool), nil
}
