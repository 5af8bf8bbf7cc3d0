package system

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/util"
)

const (
	osReleasePath = "/etc/os-release"

	// adminMarker is what the PowerShell administrator role check prints for an elevated session
	adminMarker = "True"
	rootUID     = "0"

	isAdminScript = "([Security.Principal.WindowsPrincipal][Security.Principal.WindowsIdentity]::GetCurrent()).IsInRole([Security.Principal.WindowsBuiltInRole]::Administrator)"
)

// OSInfo is the operating system description returned by the management instrumentation source
type OSInfo struct {
	Caption        string
	Version        string
	OSArchitecture string
}

// Probe detects the current host
type Probe struct {
	runner process.Runner
	fs     util.FileStore
	log    *log.Entry

	goos     string
	hostname func() (string, error)
	osInfo   func() (OSInfo, error)
}

func NewProbe(runner process.Runner, fs util.FileStore, logger *log.Entry) *Probe {
	return &Probe{
		runner:   runner,
		fs:       fs,
		log:      logger,
		goos:     runtime.GOOS,
		hostname: os.Hostname,
		osInfo:   queryOSInfo,
	}
}

// Detect returns a snapshot of the host. It never fails: every field that cannot be
// detected gets a conservative default
func (p *Probe) Detect(ctx context.Context) Platform {
	var platform Platform
	if p.goos == "windows" {
		platform = p.detectWindows(ctx)
	} else {
		platform = p.detectUnix(ctx)
	}

	platform.Hostname = p.detectHostname(ctx)
	if platform.Arch == "" {
		platform.Arch = DefaultArch
	}

	p.log.Infof("detected platform %s %s (%s, family %s), hostname %s, elevated %t",
		platform.Name, platform.Version, platform.Arch, platform.Family, platform.Hostname, platform.Elevated)
	return platform
}

func (p *Probe) detectUnix(ctx context.Context) Platform {
	var platform Platform

	id, name, version := p.readOsRelease()
	if id != "" || name != "" {
		platform.Name, platform.Family = Normalize(id)
		if platform.Family == FamilyUnsupported && name != "" {
			// derivatives keep the parent distribution in NAME
			if n, f := Normalize(name); f != FamilyUnsupported || id == "" {
				platform.Name, platform.Family = n, f
			}
		}
		platform.Version = version
	} else {
		outcome := p.runner.Run(ctx, "uname", "-s")
		if outcome.Success() {
			platform.Name, platform.Family = Normalize(strings.TrimSpace(outcome.Stdout))
		} else {
			platform.Name, platform.Family = Normalize(p.goos)
		}
		if out := p.runner.Run(ctx, "uname", "-r"); out.Success() {
			platform.Version = strings.TrimSpace(out.Stdout)
		}
	}

	if outcome := p.runner.Run(ctx, "uname", "-m"); outcome.Success() {
		platform.Arch = strings.TrimSpace(outcome.Stdout)
	}

	outcome := p.runner.Run(ctx, "id", "-u")
	platform.Elevated = outcome.Success() && strings.TrimSpace(outcome.Stdout) == rootUID

	return platform
}

func (p *Probe) readOsRelease() (id, name, version string) {
	data, err := p.fs.ReadFile(osReleasePath)
	if err != nil {
		p.log.Debugf("failed to read %s: %v", osReleasePath, err)
		return "", "", ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "ID":
			id = value
		case "NAME":
			name = value
		case "VERSION_ID":
			version = value
		}
	}
	return id, name, version
}

func (p *Probe) detectWindows(ctx context.Context) Platform {
	var platform Platform

	info, err := p.osInfo()
	if err != nil || info.Caption == "" {
		p.log.Debugf("management instrumentation query failed: %v", err)
		info = p.wmicOSInfo(ctx)
	}

	if info.Caption != "" {
		platform.Name, platform.Family = Normalize(info.Caption)
		platform.Version = info.Version
		platform.Arch = info.OSArchitecture
	} else {
		platform.Name, platform.Family = Normalize("windows")
		platform.Version = p.verOutput(ctx)
	}

	outcome := p.runner.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", isAdminScript)
	platform.Elevated = outcome.Success() && strings.TrimSpace(outcome.Stdout) == adminMarker

	return platform
}

func (p *Probe) wmicOSInfo(ctx context.Context) OSInfo {
	var info OSInfo
	outcome := p.runner.Run(ctx, "wmic", "os", "get", "Caption,Version,OSArchitecture", "/value")
	if !outcome.Success() {
		return info
	}

	for _, line := range strings.Split(outcome.Stdout, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "Caption":
			info.Caption = value
		case "Version":
			info.Version = value
		case "OSArchitecture":
			info.OSArchitecture = value
		}
	}
	return info
}

func (p *Probe) verOutput(ctx context.Context) string {
	outcome := p.runner.Run(ctx, "cmd", "/c", "ver")
	if !outcome.Success() {
		return "unknown"
	}
	osStr := strings.ReplaceAll(outcome.Stdout, "\r\n", "")
	osStr = strings.ReplaceAll(osStr, "\n", "")
	start := strings.Index(osStr, "[Version")
	end := strings.Index(osStr, "]")
	if start == -1 || end == -1 || end < start+9 {
		return "unknown"
	}
	return strings.TrimSpace(osStr[start+9 : end])
}

func (p *Probe) detectHostname(ctx context.Context) string {
	if name, err := p.hostname(); err == nil && name != "" {
		return name
	}
	if outcome := p.runner.Run(ctx, "hostname"); outcome.Success() {
		if name := strings.TrimSpace(outcome.Stdout); name != "" {
			return name
		}
	}
	return DefaultHostname
}
