package util

import (
	"os"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to the upper-cased flag name to build its environment variable
const EnvPrefix = "SALT_INSTALLER_"

// SetFlagsFromEnvVars reads and updates flag values from environment variables with prefix SALT_INSTALLER_
func SetFlagsFromEnvVars(cmd *cobra.Command) {
	// Fetch the credentials directory if it exists
	credsDir, present := os.LookupEnv("CREDENTIALS_DIRECTORY")

	setFlags := func(flags *pflag.FlagSet) {
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				return
			}
			name := FlagNameToEnvVar(f.Name)

			// Try to get the value from the credential directory
			if present {
				data, e := os.ReadFile(path.Join(credsDir, name))
				if e == nil {
					err := flags.Set(f.Name, strings.TrimSuffix(string(data), "\n"))
					if err != nil {
						log.Infof("unable to configure flag %s using credential %s, err: %v", f.Name, name, err)
					} else {
						return
					}
				}
			}

			envName := EnvPrefix + name
			if value, varPresent := os.LookupEnv(envName); varPresent {
				err := flags.Set(f.Name, value)
				if err != nil {
					log.Infof("unable to configure flag %s using variable %s, err: %v", f.Name, envName, err)
				}
			}
		})
	}

	setFlags(cmd.PersistentFlags())
	setFlags(cmd.Flags())
}

// FlagNameToEnvVar converts a flag name to its corresponding base env name
// replacing dashes by underscores and making the result uppercase
// E.g. minion-id -> MINION_ID
func FlagNameToEnvVar(cmdFlag string) string {
	return strings.ToUpper(strings.ReplaceAll(cmdFlag, "-", "_"))
}
