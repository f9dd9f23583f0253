package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStringRoundTrip(t *testing.T) {
	for _, p := range All() {
		assert.Equal(t, p, FromString(p.String()))
	}
}

func TestFromStringUnknownFailsClosed(t *testing.T) {
	for _, raw := range []string{"", "users.manage", "USERS.VIEW", "unrecognized", "*.*"} {
		p := FromString(raw)
		assert.Equal(t, Unrecognized, p)
		assert.False(t, p.Known())

		// An unknown permission is never granted by any set, wildcard
		// included.
		assert.False(t, Set{Wildcard}.Contains(p))
	}
}

func TestCatalogMetadata(t *testing.T) {
	assert.Equal(t, "Users", UsersView.Category())
	assert.Equal(t, "Logs", LogsView.Category())
	assert.NotEmpty(t, RolesManage.Description())
}

func TestByCategoryCoversCatalog(t *testing.T) {
	grouped := ByCategory()

	total := 0
	for _, perms := range grouped {
		total += len(perms)
	}
	assert.Equal(t, len(All()), total)
	assert.Contains(t, grouped, "Users")
	assert.Contains(t, grouped, "System")
}

func TestSetContains(t *testing.T) {
	set := Set{UsersView, LogsView}

	assert.True(t, set.Contains(UsersView))
	assert.True(t, set.Contains(LogsView))
	assert.False(t, set.Contains(UsersDelete))

	assert.True(t, Set{Wildcard}.Contains(UsersDelete))
	assert.False(t, Set{}.Contains(UsersView))
}

func TestSetEncodeParseRoundTrip(t *testing.T) {
	set := Set{UsersView, RolesManage}

	encoded, err := set.Encode()
	require.NoError(t, err)

	parsed, err := ParseSet(encoded)
	require.NoError(t, err)
	assert.Equal(t, set, parsed)
}

func TestParseSetUnknownMembersFailClosed(t *testing.T) {
	parsed, err := ParseSet(`["users.view","made.up"]`)
	require.NoError(t, err)

	assert.Len(t, parsed, 2)
	assert.True(t, parsed.Contains(UsersView))
	assert.False(t, parsed.Contains(FromString("made.up")))
}

func TestParseSetEmptyAndInvalid(t *testing.T) {
	parsed, err := ParseSet("")
	require.NoError(t, err)
	assert.Empty(t, parsed)

	_, err = ParseSet("{not json")
	assert.Error(t, err)
}
