package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/minion-installer/version"
)

const (
	userAgent         = "minion-installer/%s"
	DefaultRetryDelay = 3 * time.Second
)

// ProgressFunc receives the downloaded and the total byte count. Total is -1 when unknown
type ProgressFunc func(downloaded, total int64)

// HTTPConfig configures the native HTTP mechanism
type HTTPConfig struct {
	// RetryDelay is the wait before the single retry. Zero disables the retry
	RetryDelay time.Duration
	Progress   ProgressFunc
	Client     *http.Client
}

// HTTPMechanism downloads with the Go HTTP client
type HTTPMechanism struct {
	cfg HTTPConfig
	log *log.Entry
}

func NewHTTPMechanism(cfg HTTPConfig, logger *log.Entry) *HTTPMechanism {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &HTTPMechanism{cfg: cfg, log: logger}
}

func (h *HTTPMechanism) Name() string {
	return "http"
}

func (h *HTTPMechanism) Download(ctx context.Context, url, dstFile string) error {
	out, err := os.Create(dstFile)
	if err != nil {
		return fmt.Errorf("failed to create destination file %q: %w", dstFile, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			h.log.Warnf("error closing file %q: %v", dstFile, cerr)
		}
	}()

	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			if err := out.Truncate(0); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to truncate file on retry: %w", err))
			}
			if _, err := out.Seek(0, io.SeekStart); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to seek to beginning of file: %w", err))
			}
		}
		err := h.downloadOnce(ctx, url, out)
		if err != nil && attempt == 1 && h.cfg.RetryDelay > 0 {
			h.log.Warnf("download failed, retrying after %v: %v", h.cfg.RetryDelay, err)
		}
		return err
	}

	var retries uint64
	if h.cfg.RetryDelay > 0 {
		retries = 1
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(h.cfg.RetryDelay), retries), ctx)

	if err := backoff.Retry(operation, bo); err != nil {
		return err
	}
	return nil
}

func (h *HTTPMechanism) downloadOnce(ctx context.Context, url string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}

	req.Header.Set("User-Agent", fmt.Sprintf(userAgent, version.InstallerVersion()))

	resp, err := h.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			h.log.Warnf("error closing response body: %v", cerr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return backoff.Permanent(fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode))
	default:
		return fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if h.cfg.Progress != nil {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, progress: h.cfg.Progress}
	}

	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("failed to write response body to file: %w", err)
	}

	return nil
}

type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.progress(p.read, p.total)
	}
	return n, err
}
