// Package downloader fetches release artifacts, trying the native HTTP client first and
// the platform download clients after it
package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/client/system"
	"github.com/netbirdio/minion-installer/util"
)

// ErrChecksumMismatch is returned when the downloaded artifact doesn't match the expected checksum
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Mechanism downloads a URL into a local file
type Mechanism interface {
	Name() string
	Download(ctx context.Context, url, dstFile string) error
}

// Downloader walks its mechanisms in order until one of them succeeds
type Downloader struct {
	mechanisms []Mechanism
	log        *log.Entry
}

// New returns the downloader for the platform family: native HTTP, then wget and curl,
// or PowerShell on Windows
func New(runner process.Runner, family system.Family, cfg HTTPConfig, logger *log.Entry) *Downloader {
	mechanisms := []Mechanism{NewHTTPMechanism(cfg, logger)}
	if family.IsWindows() {
		mechanisms = append(mechanisms, &PowerShellMechanism{runner: runner})
	} else {
		mechanisms = append(mechanisms, &WgetMechanism{runner: runner}, &CurlMechanism{runner: runner})
	}
	return NewWithMechanisms(logger, mechanisms...)
}

func NewWithMechanisms(logger *log.Entry, mechanisms ...Mechanism) *Downloader {
	return &Downloader{mechanisms: mechanisms, log: logger}
}

// Download fetches url into dstFile
func (d *Downloader) Download(ctx context.Context, url, dstFile string) error {
	if err := os.MkdirAll(filepath.Dir(dstFile), 0750); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}

	var lastErr error
	for _, m := range d.mechanisms {
		d.log.Debugf("downloading %s with %s", url, m.Name())
		err := m.Download(ctx, url, dstFile)
		if err == nil {
			d.log.Infof("downloaded %s to %s with %s", url, dstFile, m.Name())
			return nil
		}
		lastErr = err
		d.log.Warnf("download with %s failed: %v", m.Name(), err)
		if rmErr := os.Remove(dstFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			d.log.Debugf("failed to remove partial download %s: %v", dstFile, rmErr)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if lastErr == nil {
		return errors.New("no download mechanism available")
	}
	return fmt.Errorf("all download mechanisms failed: %w", lastErr)
}

// DownloadWithChecksum downloads url into dstFile and verifies it against checksum.
// An empty checksum skips verification. A mismatch removes the file and reports false
// even when the download itself succeeded
func (d *Downloader) DownloadWithChecksum(ctx context.Context, url, dstFile, checksum string) bool {
	if err := d.Download(ctx, url, dstFile); err != nil {
		d.log.Errorf("failed to download %s: %v", url, err)
		return false
	}

	if err := Verify(dstFile, checksum); err != nil {
		d.log.Errorf("verification of %s failed: %v", dstFile, err)
		if rmErr := os.Remove(dstFile); rmErr != nil {
			d.log.Debugf("failed to remove %s: %v", dstFile, rmErr)
		}
		return false
	}
	return true
}

// Verify compares the SHA-256 of the file with the expected hex checksum. Empty expected checksum always verifies
func Verify(file, expected string) error {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return nil
	}

	actual, err := util.NewFileStore("").Checksum(file)
	if err != nil {
		return fmt.Errorf("compute checksum: %w", err)
	}

	if !strings.EqualFold(actual, strings.TrimPrefix(expected, "sha256:")) {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
	}
	return nil
}
