package metrics_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := metrics.NewSession(reg)
	require.NoError(t, err)
	second, err := metrics.NewSession(reg)
	require.NoError(t, err)

	first.Observe("login", "success", time.Millisecond)
	second.Observe("login", "success", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(first.Operations.WithLabelValues("login", "success")))
}

func TestSession_Authenticated(t *testing.T) {
	s, err := metrics.NewSession(prometheus.NewRegistry())
	require.NoError(t, err)

	s.SetAuthenticated(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.Authenticated))
	s.SetAuthenticated(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(s.Authenticated))
}

func TestSession_NilSafe(t *testing.T) {
	var s *metrics.Session
	assert.NotPanics(t, func() {
		s.Observe("logout", "success", time.Second)
		s.SetAuthenticated(true)
	})
}
