package process

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows"
)

func elevatedCommand(name string, args []string) (string, []string) {
	if windows.GetCurrentProcessToken().IsElevated() {
		return name, args
	}

	script := fmt.Sprintf("$p = Start-Process -FilePath %s -Verb RunAs -Wait -PassThru", psQuote(name))
	if len(args) > 0 {
		quoted := make([]string, 0, len(args))
		for _, arg := range args {
			quoted = append(quoted, psQuote(arg))
		}
		script += " -ArgumentList " + strings.Join(quoted, ",")
	}
	script += "; exit $p.ExitCode"

	return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", script}
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
