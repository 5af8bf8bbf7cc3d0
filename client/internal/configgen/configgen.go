// Package configgen writes and reads the minion configuration tree
package configgen

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/netbirdio/minion-installer/client/errors"
	"github.com/netbirdio/minion-installer/client/internal/installer"
	"github.com/netbirdio/minion-installer/client/internal/layout"
	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/client/system"
	"github.com/netbirdio/minion-installer/util"
	"github.com/netbirdio/minion-installer/version"
)

const (
	DefaultLogLevel = "warning"
	defaultMaster   = "127.0.0.1"
	defaultMinionID = "unknown"
	defaultPort     = 4506

	minionFile    = "minion"
	fragmentDir   = "minion.d"
	fragmentFile  = "installer.conf"
	loggingFile   = "logging.conf"
	scriptsDir    = "scripts"
	header        = "# Salt minion configuration\n# Managed by minion-installer, local changes may be overwritten\n\n"
	fragmentTitle = "# Supplementary settings written by minion-installer\n\n"
)

var pkiSubdirs = []string{"accepted_keys", "pending_keys", "rejected_keys"}

// MinionConfig is the primary minion configuration
type MinionConfig struct {
	Master     string `yaml:"master"`
	ID         string `yaml:"id"`
	MasterPort int    `yaml:"master_port"`
	LogLevel   string `yaml:"log_level"`
	FileClient string `yaml:"file_client,omitempty"`
	PKIDir     string `yaml:"pki_dir,omitempty"`
	CacheDir   string `yaml:"cachedir,omitempty"`
	LogFile    string `yaml:"log_file,omitempty"`
}

type installerFragment struct {
	TCPKeepalive bool              `yaml:"tcp_keepalive"`
	Grains       map[string]string `yaml:"grains"`
}

// Generator writes the configuration files of a minion installation
type Generator struct {
	runner process.Runner
	fs     util.FileStore
	log    *log.Entry

	// LogLevel is the minion log level written to the configuration
	LogLevel    string
	now         func() time.Time
	restrictDir func(dir string) error
}

func NewGenerator(runner process.Runner, fs util.FileStore, logger *log.Entry) *Generator {
	return &Generator{
		runner:      runner,
		fs:          fs,
		log:         logger,
		LogLevel:    DefaultLogLevel,
		now:         time.Now,
		restrictDir: util.RestrictDir,
	}
}

// Write creates the directory structure and writes the minion configuration, the logging
// configuration, the PKI directories and the helper scripts. Only a failure to write the
// configuration itself is returned
func (g *Generator) Write(ctx context.Context, platform system.Platform, req installer.Request) error {
	l := layout.For(platform.Family)
	dirs := l.Resolve(g.fs)
	g.log.Infof("generating minion configuration in %s", dirs.Config)

	g.createDirs(dirs.Config, dirs.Log, dirs.Cache, dirs.PKI, dirs.Run, l.Join(dirs.Config, fragmentDir))

	if err := g.writeMinion(l, dirs, req); err != nil {
		return errors.NewFatal("write minion configuration", err)
	}
	if err := g.writeFragment(l, dirs, platform); err != nil {
		return errors.NewFatal("write minion configuration fragment", err)
	}

	if err := g.fs.WriteFile(l.Join(dirs.Config, loggingFile), []byte(loggingConfig(l, dirs.Log)), 0644); err != nil {
		g.log.Warnf("failed to write logging configuration: %v", err)
	}

	for _, sub := range pkiSubdirs {
		if err := g.fs.MkdirAll(l.Join(dirs.PKI, sub), 0700); err != nil {
			g.log.Warnf("failed to create %s: %v", sub, err)
		}
	}

	g.writeScripts(l, dirs, platform)
	g.tightenPermissions(ctx, platform, dirs)

	g.log.Info("configuration files generated")
	return nil
}

func (g *Generator) createDirs(dirs ...string) {
	for _, d := range dirs {
		if err := g.fs.MkdirAll(d, 0755); err != nil {
			g.log.Warnf("failed to create directory %s: %v", d, err)
		}
	}
}

func (g *Generator) writeMinion(l layout.Layout, dirs layout.Dirs, req installer.Request) error {
	port := req.MasterPort
	if port == 0 {
		port = defaultPort
	}

	cfg := MinionConfig{
		Master:     req.Master,
		ID:         req.MinionID,
		MasterPort: port,
		LogLevel:   g.LogLevel,
		FileClient: "remote",
		PKIDir:     dirs.PKI,
		CacheDir:   dirs.Cache,
		LogFile:    l.Join(dirs.Log, "minion"),
	}

	content, err := marshal(header, cfg)
	if err != nil {
		return err
	}
	return g.fs.WriteFile(l.Join(dirs.Config, minionFile), content, 0640)
}

func (g *Generator) writeFragment(l layout.Layout, dirs layout.Dirs, platform system.Platform) error {
	fragment := installerFragment{
		TCPKeepalive: true,
		Grains: map[string]string{
			"installer_version": version.InstallerVersion(),
			"installed_at":      g.now().UTC().Format(time.RFC3339),
			"platform":          platform.Name,
		},
	}

	content, err := marshal(fragmentTitle, fragment)
	if err != nil {
		return err
	}
	return g.fs.WriteFile(l.Join(dirs.Config, fragmentDir, fragmentFile), content, 0640)
}

func marshal(title string, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(title)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeScripts(l layout.Layout, dirs layout.Dirs, platform system.Platform) {
	dir := l.Join(dirs.Config, scriptsDir)
	for _, s := range scriptsFor(platform.Family, dirs) {
		p := l.Join(dir, s.name)
		if err := g.fs.WriteFile(p, []byte(s.content), 0644); err != nil {
			g.log.Warnf("failed to write script %s: %v", s.name, err)
			continue
		}
		if platform.Family.IsWindows() {
			continue
		}
		if err := g.fs.MakeExecutable(p); err != nil {
			g.log.Warnf("failed to mark %s executable: %v", p, err)
		}
	}
}

// tightenPermissions hands the configuration tree to root and restricts the PKI directory
func (g *Generator) tightenPermissions(ctx context.Context, platform system.Platform, dirs layout.Dirs) {
	if platform.Family.IsWindows() {
		if err := g.restrictDir(g.fs.Path(dirs.PKI)); err != nil {
			g.log.Warnf("failed to restrict access to %s: %v", dirs.PKI, err)
		}
		return
	}

	cmds := []process.Command{
		{Name: "chown", Args: []string{"-R", "root:root", g.fs.Path(dirs.Config)}, Elevated: true},
		{Name: "chmod", Args: []string{"-R", "go-w", g.fs.Path(dirs.Config)}, Elevated: true},
		{Name: "chmod", Args: []string{"-R", "700", g.fs.Path(dirs.PKI)}, Elevated: true},
		{Name: "chown", Args: []string{"-R", "root:root", g.fs.Path(dirs.Log)}, Elevated: true},
	}
	for _, cmd := range cmds {
		if outcome := cmd.Exec(ctx, g.runner); !outcome.Success() {
			g.log.Debugf("%s failed: %s", cmd, outcome.ErrorText())
		}
	}
}

// Read parses the primary minion configuration. Missing keys take their defaults
func (g *Generator) Read(_ context.Context, platform system.Platform) (MinionConfig, error) {
	l := layout.For(platform.Family)
	file := l.Join(l.Resolve(g.fs).Config, minionFile)

	content, err := g.fs.ReadFile(file)
	if err != nil {
		return MinionConfig{}, fmt.Errorf("read %s: %w", file, err)
	}

	cfg := MinionConfig{
		Master:     defaultMaster,
		ID:         defaultMinionID,
		MasterPort: defaultPort,
		LogLevel:   DefaultLogLevel,
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		g.log.Debugf("%s is not valid yaml, parsing key value lines: %v", file, err)
		parseLines(string(content), &cfg)
	}
	return cfg, nil
}

// parseLines reads "key: value" lines, ignoring comments and unknown keys
func parseLines(content string, cfg *MinionConfig) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "master":
			cfg.Master = value
		case "id":
			cfg.ID = value
		case "master_port":
			if port, err := strconv.Atoi(value); err == nil {
				cfg.MasterPort = port
			}
		case "log_level":
			cfg.LogLevel = value
		}
	}
}
