package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/auth/login", "POST", 200, 40*time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 200, 10*time.Millisecond)
	m.RecordError("/auth/login", "POST", "INVALID_CREDENTIALS")
	m.RecordAuthFailure("authenticate", "token_expired")

	snap := m.Snapshot()
	require.Equal(t, int64(2), snap.Requests["/auth/login|POST|200"])
	require.Equal(t, int64(50), snap.LatencyMS["/auth/login|POST"])
	require.Equal(t, int64(1), snap.Errors["/auth/login|POST|INVALID_CREDENTIALS"])
	require.Equal(t, int64(1), m.AuthFailures("authenticate", "token_expired"))

	// the snapshot is a copy
	snap.Requests["/auth/login|POST|200"] = 99
	require.Equal(t, int64(2), m.Snapshot().Requests["/auth/login|POST|200"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "INTERNAL")
	m.RecordAuthFailure("authenticate", "user_inactive")
	require.Zero(t, m.AuthFailures("authenticate", "user_inactive"))
	require.Empty(t, m.Snapshot().Requests)
}
