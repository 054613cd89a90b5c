package flowrepo_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/linking/flowrepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRepo(t *testing.T) {
	r := flowrepo.NewCacheRepo(time.Minute)

	require.Error(t, r.Upsert("", &flowrepo.FlowState{}))
	require.Error(t, r.Upsert("s", nil))

	in := &flowrepo.FlowState{RedirectURI: "myapp://strava", Scope: "read", CreatedAt: time.Now()}
	require.NoError(t, r.Upsert("s1", in))

	// Mutating the caller's copy doesn't leak into the repo.
	in.Scope = "changed"
	got, err := r.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "read", got.Scope)

	require.NoError(t, r.Delete("s1"))
	_, err = r.Get("s1")
	require.ErrorIs(t, err, flowrepo.ErrStateNotFound)
}

func TestCacheRepo_Expiry(t *testing.T) {
	r := flowrepo.NewCacheRepo(20 * time.Millisecond)
	require.NoError(t, r.Upsert("s1", &flowrepo.FlowState{}))

	time.Sleep(50 * time.Millisecond)
	_, err := r.Get("s1")
	require.ErrorIs(t, err, flowrepo.ErrStateNotFound)
}
