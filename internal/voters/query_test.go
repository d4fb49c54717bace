package voters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunvault/dunvault/internal/authz"
)

func TestScopeWhere(t *testing.T) {
	w := scopeWhere(authz.Scope{All: true})
	assert.Empty(t, w.String())
	assert.Empty(t, w.args)

	w = scopeWhere(authz.Scope{})
	assert.Equal(t, "WHERE FALSE", w.String())

	w = scopeWhere(authz.Scope{DUN: "Kawang"})
	assert.Equal(t, "WHERE dun = $1", w.String())
	assert.Equal(t, []any{"Kawang"}, w.args)
}

func TestListWhereUntaggedIsNull(t *testing.T) {
	q, err := Filter{Tag: "untagged"}.Normalize()
	require.NoError(t, err)
	w := listWhere(authz.Scope{DUN: "Kawang"}, q)
	assert.Equal(t, "WHERE dun = $1 AND tag IS NULL", w.String())
	assert.Equal(t, []any{"Kawang"}, w.args)
	assert.Equal(t, 2, w.next())
}

func TestListWhereFilters(t *testing.T) {
	q, err := Filter{Name: " 50%_off ", Gender: "P", Daerah: "Papar", Lokaliti: "Pekan", Tag: "No"}.Normalize()
	require.NoError(t, err)
	w := listWhere(authz.Scope{All: true}, q)
	assert.Equal(t, `WHERE nama_pemilih ILIKE $1 ESCAPE '\' AND jantina = $2 AND daerah_mengundi = $3 AND lokaliti = $4 AND tag = $5`, w.String())
	assert.Equal(t, []any{`%50\%\_off%`, "P", "Papar", "Pekan", "No"}, w.args)
}

func TestNormalizeWindow(t *testing.T) {
	q, err := Filter{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, q.Window.Limit)

	q, err = Filter{Limit: 50000, Offset: -3}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, q.Window.Limit)
	assert.Zero(t, q.Window.Offset)
}

func TestParseTag(t *testing.T) {
	for _, ok := range []string{"Yes", "Unsure", "No"} {
		tag, err := ParseTag(ok)
		require.NoError(t, err)
		assert.Equal(t, Tag(ok), tag)
	}
	for _, bad := range []string{"", "yes", "untagged", "Maybe"} {
		_, err := ParseTag(bad)
		assert.Error(t, err, bad)
	}
}
