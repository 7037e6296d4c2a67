package sinkhole

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsMode(t *testing.T) {
	s, err := New(ModeDryRun, Config{Name: "datacap0"})
	require.NoError(t, err)
	assert.IsType(t, &DryRun{}, s)

	s, err = New(ModeTUN, Config{Name: "datacap0", Address: "10.0.0.2/24", MTU: 1500})
	require.NoError(t, err)
	assert.IsType(t, &TUN{}, s)
	assert.False(t, s.Active())

	_, err = New("iptables", Config{})
	assert.Error(t, err)
}

func TestDryRunIsIdempotent(t *testing.T) {
	d := NewDryRun("datacap0")
	ctx := context.Background()

	require.NoError(t, d.Teardown())
	assert.False(t, d.Active())

	require.NoError(t, d.Establish(ctx))
	require.NoError(t, d.Establish(ctx))
	assert.True(t, d.Active())

	require.NoError(t, d.Teardown())
	require.NoError(t, d.Teardown())
	assert.False(t, d.Active())
	assert.Zero(t, d.DroppedPackets())
}

func TestTUNTeardownWithoutEstablish(t *testing.T) {
	tun := NewTUN(Config{Name: "datacap0"}, func(context.Context, string, ...string) error { return nil })
	assert.NoError(t, tun.Teardown())
	assert.False(t, tun.Active())
}
