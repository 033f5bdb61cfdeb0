package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListQueryDefaults(t *testing.T) {
	sql, args, err := buildListQuery(Query{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, `SELECT "id", "title", "author", "isbn", "published_date", "copies_available"`), sql)
	assert.Contains(t, sql, `FROM "books"`)
	assert.NotContains(t, sql, "WHERE")
	assert.True(t, strings.HasSuffix(sql, `ORDER BY "title" ASC, "id" ASC`), sql)
	assert.Empty(t, args)
}

func TestBuildListQuerySearchTerms(t *testing.T) {
	sql, args, err := buildListQuery(Query{Search: "  dune   herbert "})
	require.NoError(t, err)

	assert.Equal(t, 6, strings.Count(sql, "ILIKE"), sql)
	assert.Contains(t, sql, `"isbn" ILIKE $3`)
	assert.Equal(t, []interface{}{
		"%dune%", "%dune%", "%dune%",
		"%herbert%", "%herbert%", "%herbert%",
	}, args)
}

func TestBuildListQueryEscapesWildcards(t *testing.T) {
	_, args, err := buildListQuery(Query{Search: `100%_pure\`})
	require.NoError(t, err)
	require.NotEmpty(t, args)
	assert.Equal(t, `%100\%\_pure\\%`, args[0])
}

func TestBuildListQueryAvailableOnly(t *testing.T) {
	sql, args, err := buildListQuery(Query{AvailableOnly: true})
	require.NoError(t, err)

	assert.Contains(t, sql, `"copies_available" > $1`)
	assert.Len(t, args, 1)
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		ordering string
		want     string
	}{
		{"", `ORDER BY "title" ASC, "id" ASC`},
		{"author", `ORDER BY "author" ASC, "id" ASC`},
		{"-published_date,title", `ORDER BY "published_date" DESC, "title" ASC, "id" ASC`},
		{"copies_available", `ORDER BY "title" ASC, "id" ASC`},
		{"author, -author", `ORDER BY "author" ASC, "id" ASC`},
		{"password,-author", `ORDER BY "author" DESC, "id" ASC`},
	}
	for _, tt := range tests {
		t.Run(tt.ordering, func(t *testing.T) {
			sql, _, err := buildListQuery(Query{Ordering: tt.ordering})
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(sql, tt.want), sql)
		})
	}
}
