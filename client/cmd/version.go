package cmd

import (
	"fmt"
	"runtime"

	"github.com/netbirdio/minion-installer/version"
)

func versionString() string {
	return fmt.Sprintf("Salt minion installer %s (%s/%s)", version.InstallerVersion(), runtime.GOOS, runtime.GOARCH)
}
