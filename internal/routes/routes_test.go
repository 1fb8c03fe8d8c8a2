package routes

import (
	"testing"

	"shiplog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "/profile/u-1", ProfilePath("u-1"))
	assert.Equal(t, "/projects/p-1", ProjectPath("p-1"))
	assert.Equal(t, "/profile/a%2Fb", ProfilePath("a/b"))
}

func TestResolveProfileTarget(t *testing.T) {
	id, err := ResolveProfileTarget("route-user", "session-user")
	require.NoError(t, err)
	assert.Equal(t, "route-user", id)

	id, err = ResolveProfileTarget("  ", "session-user")
	require.NoError(t, err)
	assert.Equal(t, "session-user", id)

	_, err = ResolveProfileTarget("", "")
	assert.ErrorIs(t, err, models.ErrNoIdentity)
}
