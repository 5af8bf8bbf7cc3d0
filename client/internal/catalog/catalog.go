// Package catalog resolves minion release versions to downloadable artifacts
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/minion-installer/client/system"
)

const (
	// Latest is the symbolic version that resolves to the newest known release
	Latest = "latest"

	DefaultManifestURL = "https://repo.saltproject.io/releases.json"
	DefaultBaseURL     = "https://repo.saltproject.io"

	linuxArtifactSize   = 30 * 1024 * 1024
	windowsArtifactSize = 50 * 1024 * 1024

	manifestLimit = 4 * 1024 * 1024
)

// FallbackVersions is used whenever the remote manifest can't be fetched or parsed
var FallbackVersions = []string{"3006.4", "3006.3", "3006.2", "3006.1", "3005.4"}

// Artifact describes a downloadable release for a platform
type Artifact struct {
	Version string
	URL     string
	// Checksum is the expected SHA-256. Empty means verification is skipped
	Checksum string
	// Size is advisory
	Size int64
}

// FileName returns the last element of the download URL
func (a Artifact) FileName() string {
	u := a.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return path.Base(u)
}

type urlPattern struct {
	dir string
	// file builds the artifact file name for a version
	file func(version string) string
	size int64
}

func debFile(v string) string { return fmt.Sprintf("salt-minion_%s.deb", v) }
func rpmFile(v string) string { return fmt.Sprintf("salt-minion-%s-0.x86_64.rpm", v) }
func exeFile(v string) string { return fmt.Sprintf("Salt-Minion-%s-Py3-AMD64-Setup.exe", v) }

// urlPatterns is keyed by the normalized OS name
var urlPatterns = map[string]urlPattern{
	"ubuntu":  {dir: "py3/ubuntu/20.04", file: debFile, size: linuxArtifactSize},
	"debian":  {dir: "py3/debian/10", file: debFile, size: linuxArtifactSize},
	"linux":   {dir: "py3/ubuntu/20.04", file: debFile, size: linuxArtifactSize},
	"centos":  {dir: "py3/centos/8", file: rpmFile, size: linuxArtifactSize},
	"rhel":    {dir: "py3/rhel/8", file: rpmFile, size: linuxArtifactSize},
	"fedora":  {dir: "py3/fedora/36", file: rpmFile, size: linuxArtifactSize},
	"windows": {dir: "windows", file: exeFile, size: windowsArtifactSize},
}

// Config of the catalog
type Config struct {
	ManifestURL  string
	BaseURL      string
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultConfig returns the catalog settings used by the installer
func DefaultConfig() Config {
	return Config{
		ManifestURL:  DefaultManifestURL,
		BaseURL:      DefaultBaseURL,
		RetryMax:     2,
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 5 * time.Second,
	}
}

type manifestDownload struct {
	URL      string `json:"url"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

type manifestRelease struct {
	Version     string                      `json:"version"`
	ReleaseDate string                      `json:"releaseDate"`
	Downloads   map[string]manifestDownload `json:"downloads"`
}

// Catalog lists releases from the remote manifest, or from FallbackVersions
type Catalog struct {
	cfg  Config
	http *http.Client
	log  *log.Entry
}

func New(cfg Config, logger *log.Entry) *Catalog {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil

	return &Catalog{
		cfg:  cfg,
		http: retryClient.StandardClient(),
		log:  logger,
	}
}

// ListAvailableVersions returns the known versions, most recent first
func (c *Catalog) ListAvailableVersions(ctx context.Context) []string {
	versions, _ := c.list(ctx)
	return versions
}

// Resolve maps a version request to the artifact for the platform. "latest" and an empty
// request resolve to the first element of the version list
func (c *Catalog) Resolve(ctx context.Context, request string, platform system.Platform) (Artifact, error) {
	versions, releases := c.list(ctx)

	version := strings.TrimPrefix(strings.TrimSpace(request), "v")
	if version == "" || strings.EqualFold(version, Latest) {
		version = versions[0]
	}

	if release, ok := releases[version]; ok {
		if dl, ok := release.Downloads[platform.Name]; ok && dl.URL != "" {
			c.log.Debugf("using manifest download for %s %s", version, platform.Name)
			return Artifact{Version: version, URL: dl.URL, Checksum: dl.Checksum, Size: dl.Size}, nil
		}
	}

	pattern, ok := urlPatterns[platform.Name]
	if !ok {
		return Artifact{}, fmt.Errorf("no release artifact for platform %s", platform.Name)
	}

	return Artifact{
		Version: version,
		URL:     strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + path.Join(pattern.dir, version, pattern.file(version)),
		Size:    pattern.size,
	}, nil
}

func (c *Catalog) list(ctx context.Context) ([]string, map[string]manifestRelease) {
	releases, err := c.fetchManifest(ctx)
	if err != nil {
		c.log.Warnf("failed to fetch release manifest, using built-in version list: %v", err)
		return fallback(), nil
	}

	versions := sortVersions(releases)
	if len(versions) == 0 {
		c.log.Warnf("release manifest has no usable versions, using built-in version list")
		return fallback(), nil
	}

	byVersion := make(map[string]manifestRelease, len(releases))
	for _, r := range releases {
		byVersion[strings.TrimPrefix(r.Version, "v")] = r
	}
	return versions, byVersion
}

func (c *Catalog) fetchManifest(ctx context.Context) ([]manifestRelease, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ManifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warnf("error closing manifest response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, manifestLimit))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var releases []manifestRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return releases, nil
}

// sortVersions returns the valid, unique versions of the manifest, newest first
func sortVersions(releases []manifestRelease) []string {
	seen := make(map[string]struct{}, len(releases))
	parsed := make([]*goversion.Version, 0, len(releases))
	raw := make(map[*goversion.Version]string, len(releases))
	for _, r := range releases {
		s := strings.TrimPrefix(strings.TrimSpace(r.Version), "v")
		if _, ok := seen[s]; ok {
			continue
		}
		v, err := goversion.NewVersion(s)
		if err != nil {
			continue
		}
		seen[s] = struct{}{}
		parsed = append(parsed, v)
		raw[v] = s
	}

	sort.Sort(sort.Reverse(goversion.Collection(parsed)))

	versions := make([]string, 0, len(parsed))
	for _, v := range parsed {
		versions = append(versions, raw[v])
	}
	return versions
}

func fallback() []string {
	return append([]string(nil), FallbackVersions...)
}
