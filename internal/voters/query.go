package voters

import (
	"fmt"
	"strings"

	"github.com/dunvault/dunvault/internal/authz"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause accumulates positional conditions.
type whereClause struct {
	conditions []string
	args       []any
}

func (w *whereClause) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *whereClause) raw(condition string) {
	w.conditions = append(w.conditions, condition)
}

func (w *whereClause) next() int {
	return len(w.args) + 1
}

func (w *whereClause) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

// scopeWhere translates a visibility scope into SQL. An empty scope matches
// nothing.
func scopeWhere(scope authz.Scope) *whereClause {
	w := &whereClause{}
	switch {
	case scope.All:
	case scope.Empty():
		w.raw("FALSE")
	default:
		w.add("dun = $%d", scope.DUN)
	}
	return w
}

// listWhere combines the scope with the list filters.
func listWhere(scope authz.Scope, q Query) *whereClause {
	w := scopeWhere(scope)
	if q.Name != "" {
		w.add(`nama_pemilih ILIKE $%d ESCAPE '\'`, "%"+likeEscaper.Replace(q.Name)+"%")
	}
	if q.Gender != "" {
		w.add("jantina = $%d", q.Gender)
	}
	if q.Daerah != "" {
		w.add("daerah_mengundi = $%d", q.Daerah)
	}
	if q.Lokaliti != "" {
		w.add("lokaliti = $%d", q.Lokaliti)
	}
	switch {
	case q.Untagged:
		w.raw("tag IS NULL")
	case q.Tag != nil:
		w.add("tag = $%d", string(*q.Tag))
	}
	return w
}
