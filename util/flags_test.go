package util

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagNameToEnvVar(t *testing.T) {
	assert.Equal(t, "MINION_ID", FlagNameToEnvVar("minion-id"))
	assert.Equal(t, "MASTER", FlagNameToEnvVar("master"))
}

func TestSetFlagsFromEnvVars(t *testing.T) {
	var master, logLevel string
	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "")
	cmd.Flags().StringVar(&master, "master", "127.0.0.1", "")

	t.Setenv("SALT_INSTALLER_MASTER", "10.0.0.5")
	t.Setenv("SALT_INSTALLER_LOG_LEVEL", "debug")

	SetFlagsFromEnvVars(cmd)

	assert.Equal(t, "10.0.0.5", master)
	assert.Equal(t, "debug", logLevel)
}

func TestSetFlagsFromEnvVarsKeepsExplicitFlags(t *testing.T) {
	var master string
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&master, "master", "127.0.0.1", "")
	require.NoError(t, cmd.Flags().Set("master", "192.168.1.10"))

	t.Setenv("SALT_INSTALLER_MASTER", "10.0.0.5")
	SetFlagsFromEnvVars(cmd)

	assert.Equal(t, "192.168.1.10", master)
}
