package repository

import (
	"fmt"
	"strings"
)

// updateSet collects the ordered (column, value) pairs of a sparse update.
// Only fields the caller explicitly supplied end up here; everything else
// stays out of the UPDATE statement entirely.
type updateSet struct {
	columns []string
	args    []any
}

func (s *updateSet) add(column string, value any) {
	s.args = append(s.args, value)
	s.columns = append(s.columns, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

// addExpr appends an assignment that takes no bound argument, such as
// "updated_at = now()".
func (s *updateSet) addExpr(assignment string) {
	s.columns = append(s.columns, assignment)
}

func (s *updateSet) empty() bool {
	return len(s.columns) == 0
}

// clause renders the SET list, e.g. "email = $1, first_name = $2".
func (s *updateSet) clause() string {
	return strings.Join(s.columns, ", ")
}

// next returns the placeholder index for the argument after the set.
func (s *updateSet) next() int {
	return len(s.args) + 1
}
