package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	svc, err := NewService("Asia/Almaty")
	require.NoError(t, err)
	require.Equal(t, "Asia/Almaty", svc.Location().String())

	now := svc.Now()
	require.Equal(t, svc.Location(), now.Location())
}

func TestNewService_UnknownZone(t *testing.T) {
	_, err := NewService("Mars/Olympus")
	require.Error(t, err)
}

func TestServiceIn(t *testing.T) {
	svc, err := NewService("Asia/Almaty")
	require.NoError(t, err)

	utc := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	local := svc.In(utc)

	require.True(t, utc.Equal(local))
	require.Equal(t, svc.Location(), local.Location())
}

func TestFixed(t *testing.T) {
	ts := time.Date(2025, time.June, 15, 18, 30, 0, 0, time.UTC)
	c := Fixed{Time: ts}

	require.Equal(t, ts, c.Now())
	require.Equal(t, time.UTC, c.Location())
}
