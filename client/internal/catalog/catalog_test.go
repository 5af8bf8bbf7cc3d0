package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbirdio/minion-installer/client/system"
)

const testManifest = `[
  {"version": "3006.2", "releaseDate": "2023-08-10"},
  {"version": "3007.1", "releaseDate": "2024-05-20",
   "downloads": {"ubuntu": {"url": "https://mirror.example/salt-minion_3007.1.deb", "checksum": "abc123", "size": 1024}}},
  {"version": "not-a-version"},
  {"version": "3006.10", "releaseDate": "2024-03-01"}
]`

var (
	ubuntu  = system.Platform{Name: "ubuntu", Family: system.FamilyDebian}
	centos  = system.Platform{Name: "centos", Family: system.FamilyRHEL}
	windows = system.Platform{Name: "windows", Family: system.FamilyWindows}
)

func newTestCatalog(t *testing.T, handler http.HandlerFunc) *Catalog {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RetryMax = 0
	cfg.BaseURL = "https://repo.example"

	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		cfg.ManifestURL = server.URL + "/releases.json"
	} else {
		cfg.ManifestURL = "http://127.0.0.1:1/releases.json"
	}

	return New(cfg, log.NewEntry(log.New()))
}

func TestListAvailableVersionsFromManifest(t *testing.T) {
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testManifest))
	})

	versions := c.ListAvailableVersions(context.Background())
	assert.Equal(t, []string{"3007.1", "3006.10", "3006.2"}, versions)
}

func TestListAvailableVersionsFallback(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name:    "unreachable",
			handler: nil,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
		},
		{
			name: "empty list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("[]"))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCatalog(t, tc.handler)
			assert.Equal(t, FallbackVersions, c.ListAvailableVersions(context.Background()))
		})
	}
}

func TestResolveLatestIsFirstListed(t *testing.T) {
	c := newTestCatalog(t, nil)

	versions := c.ListAvailableVersions(context.Background())
	artifact, err := c.Resolve(context.Background(), Latest, ubuntu)
	require.NoError(t, err)
	assert.Equal(t, versions[0], artifact.Version)
	assert.Equal(t, "3006.4", artifact.Version)

	empty, err := c.Resolve(context.Background(), "", ubuntu)
	require.NoError(t, err)
	assert.Equal(t, artifact, empty)
}

func TestResolveLatestFromManifest(t *testing.T) {
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testManifest))
	})

	artifact, err := c.Resolve(context.Background(), "LATEST", ubuntu)
	require.NoError(t, err)
	assert.Equal(t, Artifact{
		Version:  "3007.1",
		URL:      "https://mirror.example/salt-minion_3007.1.deb",
		Checksum: "abc123",
		Size:     1024,
	}, artifact)

	// no manifest download entry for centos
	artifact, err = c.Resolve(context.Background(), Latest, centos)
	require.NoError(t, err)
	assert.Equal(t, "https://repo.example/py3/centos/8/3007.1/salt-minion-3007.1-0.x86_64.rpm", artifact.URL)
	assert.Empty(t, artifact.Checksum)
}

func TestResolveExplicitVersion(t *testing.T) {
	c := newTestCatalog(t, nil)

	testCases := []struct {
		platform system.Platform
		request  string
		url      string
		size     int64
	}{
		{ubuntu, "3006.4", "https://repo.example/py3/ubuntu/20.04/3006.4/salt-minion_3006.4.deb", linuxArtifactSize},
		{centos, "v3005.4", "https://repo.example/py3/centos/8/3005.4/salt-minion-3005.4-0.x86_64.rpm", linuxArtifactSize},
		{windows, "3006.1", "https://repo.example/windows/3006.1/Salt-Minion-3006.1-Py3-AMD64-Setup.exe", windowsArtifactSize},
	}

	for _, tc := range testCases {
		artifact, err := c.Resolve(context.Background(), tc.request, tc.platform)
		require.NoError(t, err)
		assert.Equal(t, tc.url, artifact.URL)
		assert.Equal(t, tc.size, artifact.Size)
		assert.Empty(t, artifact.Checksum)
	}

	artifact, err := c.Resolve(context.Background(), "3006.4", ubuntu)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(artifact.FileName(), ".deb"))
	assert.Equal(t, "salt-minion_3006.4.deb", artifact.FileName())
}

func TestResolveUnsupportedPlatform(t *testing.T) {
	c := newTestCatalog(t, nil)

	_, err := c.Resolve(context.Background(), Latest, system.Platform{Name: "darwin"})
	assert.Error(t, err)
}

func TestArtifactFileName(t *testing.T) {
	a := Artifact{URL: "https://mirror.example/pkg/salt-minion_3006.4.deb?token=abc"}
	assert.Equal(t, "salt-minion_3006.4.deb", a.FileName())
}
