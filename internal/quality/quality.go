// Package quality evaluates named data quality rules against a table.
//
// A Rule is a predicate over the whole table. Run evaluates every rule and
// reports name -> passed. Rules are not isolated: the first rule that fails
// to evaluate (returns an error or panics) aborts the run with a
// errs.KindRuleEvaluation error naming it.
package quality

import (
	"fmt"
	"sort"

	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/table"
)

// Rule reports whether tbl satisfies a condition. An error means the rule
// could not be evaluated, not that the check failed.
type Rule func(tbl *table.Table) (bool, error)

// Rules maps rule names to rules.
type Rules map[string]Rule

// Names returns the rule names in evaluation order.
func (r Rules) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run evaluates rules against tbl in name order.
func Run(tbl *table.Table, rules Rules) (map[string]bool, error) {
	out := make(map[string]bool, len(rules))
	for _, name := range rules.Names() {
		ok, err := eval(tbl, rules[name])
		if err != nil {
			return nil, errs.E(errs.KindRuleEvaluation, "check "+name, err)
		}
		out[name] = ok
	}
	return out, nil
}

func eval(tbl *table.Table, rule Rule) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	if rule == nil {
		return false, fmt.Errorf("nil rule")
	}
	return rule(tbl)
}

// Failed returns the names of rules that evaluated to false, sorted.
func Failed(results map[string]bool) []string {
	var failed []string
	for name, ok := range results {
		if !ok {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}
