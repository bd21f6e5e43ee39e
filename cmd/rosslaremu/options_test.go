package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serial_port: FT232R\nbaud: 19200\nlog_level: warn\n"), 0o600))

	opts := &rootOptions{configPath: path}
	var link linkFlags
	cmd := &cobra.Command{Use: "test"}
	link.register(cmd)
	require.NoError(t, cmd.Flags().Set("driver", "tarm"))
	require.NoError(t, cmd.Flags().Set("read-timeout", "20ms"))

	cfg, err := opts.load(cmd, &link, "")
	require.NoError(t, err)
	assert.Equal(t, "FT232R", cfg.SerialPort)
	assert.Equal(t, 19200, cfg.Baud)
	assert.Equal(t, "tarm", cfg.Driver)
	assert.Equal(t, 20*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)

	opts.logLevel = "debug"
	cfg, err = opts.load(cmd, &link, "/dev/ttyUSB2")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB2", cfg.SerialPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestServeRejectsMissingPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("baud: 9600\n"), 0o600))

	cmd := serveCommand(&rootOptions{configPath: path})
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "serial_port is required")
}
