// internal/catalog/query.go
package catalog

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	dialectPostgres = "postgres"
	tableBooks      = "books"

	colID              = "id"
	colTitle           = "title"
	colAuthor          = "author"
	colISBN            = "isbn"
	colPublishedDate   = "published_date"
	colCopiesAvailable = "copies_available"
)

var bookColumns = []interface{}{
	colID, colTitle, colAuthor, colISBN, colPublishedDate, colCopiesAvailable,
	"version", "created_at", "updated_at",
}

var searchColumns = []string{colTitle, colAuthor, colISBN}

var orderableColumns = map[string]bool{
	colTitle:         true,
	colAuthor:        true,
	colPublishedDate: true,
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildListQuery renders q as a parameterised SELECT over the books table.
func buildListQuery(q Query) (string, []interface{}, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(tableBooks).
		Prepared(true).
		Select(bookColumns...)

	for _, term := range strings.Fields(q.Search) {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		matches := make([]exp.Expression, 0, len(searchColumns))
		for _, col := range searchColumns {
			matches = append(matches, goqu.I(col).ILike(pattern))
		}
		selectStmt = selectStmt.Where(goqu.Or(matches...))
	}

	if q.AvailableOnly {
		selectStmt = selectStmt.Where(goqu.I(colCopiesAvailable).Gt(0))
	}

	return selectStmt.Order(orderBy(q.Ordering)...).ToSQL()
}

// orderBy parses a comma separated ordering. Unknown fields are ignored and the id
// always breaks ties so pages are stable.
func orderBy(ordering string) []exp.OrderedExpression {
	var out []exp.OrderedExpression
	seen := make(map[string]bool)
	for _, field := range strings.Split(ordering, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if !orderableColumns[field] || seen[field] {
			continue
		}
		seen[field] = true
		if desc {
			out = append(out, goqu.I(field).Desc())
		} else {
			out = append(out, goqu.I(field).Asc())
		}
	}
	if len(out) == 0 {
		out = append(out, goqu.I(colTitle).Asc())
	}
	return append(out, goqu.I(colID).Asc())
}
