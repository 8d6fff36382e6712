package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ljishen/Pyben-nio/benio/config"
)

func clientFlags() *flags {
	fl := newFlags("client")
	fl.listVar(func(c *config.Config) *[]string { return &c.Client.Addresses }, "", "a", "addresses")
	fl.strVar(func(c *config.Config) *string { return &c.Client.Size }, "", "s", "size")
	fl.intVar(func(c *config.Config) *int { return &c.Client.Port }, "", "p", "port")
	fl.boolVar(func(c *config.Config) *bool { return &c.Client.Compress }, "", "compress")
	return fl
}

func TestFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client:\n  size: 1K\n  port: 9000\n  addresses: [a]\n"), 0o644))

	fl := clientFlags()
	require.NoError(t, fl.parse([]string{"--config", path, "-a", "x,y", "--addresses", "z", "-s", "2K"}))
	cfg, logger, err := fl.load(func(c *config.Config) error { return c.Client.Validate() })
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.Equal(t, []string{"x", "y", "z"}, cfg.Client.Addresses)
	assert.Equal(t, "2K", cfg.Client.Size)
	assert.Equal(t, 9000, cfg.Client.Port)
	assert.False(t, cfg.Client.Compress)
}

func TestFlagsValidation(t *testing.T) {
	fl := clientFlags()
	require.NoError(t, fl.parse([]string{"-s", "1K"}))
	_, _, err := fl.load(func(c *config.Config) error { return c.Client.Validate() })
	assert.Error(t, err)
}

func TestFlagsRejectPositional(t *testing.T) {
	fl := clientFlags()
	fl.fs.SetOutput(io.Discard)
	assert.Error(t, fl.parse([]string{"-s", "1K", "extra"}))
}

func TestListValue(t *testing.T) {
	var l listValue
	require.NoError(t, l.Set("a, b,,c"))
	require.NoError(t, l.Set("d"))
	assert.Equal(t, listValue{"a", "b", "c", "d"}, l)
	assert.Equal(t, "a,b,c,d", l.String())
}
