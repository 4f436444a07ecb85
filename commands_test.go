package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_AcceptsServeFlags(t *testing.T) {
	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--read-only", "--metrics-addr", "127.0.0.1:9100", "--max-rows", "5"}))

	ro, err := root.PersistentFlags().GetBool("read-only")
	require.NoError(t, err)
	assert.True(t, ro)
	n, err := root.PersistentFlags().GetInt("max-rows")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	root = newRootCmd()
	root.SetArgs([]string{"--read-only", "--max-rows", "5", "version"})
	assert.NoError(t, root.Execute())
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	for _, args := range [][]string{
		{"--config", missing},
		{"serve", "--config", missing},
	} {
		root := newRootCmd()
		root.SetArgs(args)
		err := root.Execute()
		require.Error(t, err, args)
		assert.ErrorIs(t, err, os.ErrNotExist)
	}
}
