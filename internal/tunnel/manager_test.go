package tunnel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/model"
	"github.com/berbicanes/queryark/internal/tunnel"
)

func TestEnsureTunnelPassesThroughWhenDisabled(t *testing.T) {
	m := tunnel.NewManager(nil)
	cfg := &model.ConnectionConfig{ID: "c1", Host: "db.internal", Port: 5432}

	out, err := m.EnsureTunnel(cfg)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", out.Host)
	assert.Equal(t, 5432, out.Port)
	assert.NotSame(t, cfg, out)
}

func TestEnsureTunnelRequiresSshHost(t *testing.T) {
	m := tunnel.NewManager(nil)
	cfg := &model.ConnectionConfig{ID: "c1", SSH: model.SSHConfig{Enabled: true, User: "deploy"}}

	_, err := m.EnsureTunnel(cfg)
	require.Error(t, err)
	dbErr, ok := dberrors.As(err)
	require.True(t, ok)
	assert.Equal(t, dberrors.CodeSshTunnel, dbErr.Code)
}

func TestEnsureTunnelRequiresSshUser(t *testing.T) {
	m := tunnel.NewManager(nil)
	cfg := &model.ConnectionConfig{ID: "c1", SSH: model.SSHConfig{Enabled: true, Host: "bastion"}}

	_, err := m.EnsureTunnel(cfg)
	require.Error(t, err)
	dbErr, ok := dberrors.As(err)
	require.True(t, ok)
	assert.Equal(t, dberrors.CodeSshTunnel, dbErr.Code)
}

func TestEnsureTunnelFailsWithoutAuthMethod(t *testing.T) {
	m := tunnel.NewManager(nil)
	cfg := &model.ConnectionConfig{
		ID:  "c1",
		SSH: model.SSHConfig{Enabled: true, Host: "bastion", User: "deploy"},
	}

	_, err := m.EnsureTunnel(cfg)
	require.Error(t, err)
	dbErr, ok := dberrors.As(err)
	require.True(t, ok)
	assert.Equal(t, dberrors.CodeSshTunnel, dbErr.Code)
}

func TestRemoveTunnelOnUnknownIdIsNoop(t *testing.T) {
	m := tunnel.NewManager(nil)
	m.RemoveTunnel("does-not-exist")
}
