package downloader

import (
	"context"
	"fmt"

	"github.com/netbirdio/minion-installer/client/errors"
	"github.com/netbirdio/minion-installer/client/internal/process"
)

func outcomeErr(tool string, outcome process.Outcome) error {
	if outcome.Success() {
		return nil
	}
	return errors.Recoverablef("%s exited with code %d: %s", tool, outcome.ExitCode, outcome.ErrorText())
}

// WgetMechanism downloads with wget
type WgetMechanism struct {
	runner process.Runner
}

func (w *WgetMechanism) Name() string { return "wget" }

func (w *WgetMechanism) Download(ctx context.Context, url, dstFile string) error {
	return outcomeErr("wget", w.runner.Run(ctx, "wget", "-q", "-O", dstFile, url))
}

// CurlMechanism downloads with curl
type CurlMechanism struct {
	runner process.Runner
}

func (c *CurlMechanism) Name() string { return "curl" }

func (c *CurlMechanism) Download(ctx context.Context, url, dstFile string) error {
	return outcomeErr("curl", c.runner.Run(ctx, "curl", "-fsSL", "-o", dstFile, url))
}

// PowerShellMechanism downloads with Invoke-WebRequest
type PowerShellMechanism struct {
	runner process.Runner
}

func (p *PowerShellMechanism) Name() string { return "powershell" }

func (p *PowerShellMechanism) Download(ctx context.Context, url, dstFile string) error {
	script := fmt.Sprintf("$ProgressPreference = 'SilentlyContinue'; Invoke-WebRequest -UseBasicParsing -Uri '%s' -OutFile '%s'", url, dstFile)
	return outcomeErr("powershell", p.runner.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script))
}
