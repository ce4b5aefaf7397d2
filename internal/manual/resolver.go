// Package manual resolves a device identity to a usable local manual file,
// downloading from the registered remote source on first use.
package manual

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medassist/device-assistant/internal/catalog"
	"github.com/medassist/device-assistant/internal/model"
	"github.com/medassist/device-assistant/internal/resilience"
)

// ErrNoManual reports that no manual can be produced for a device. This is
// the expected outcome for unregistered devices and for failed downloads;
// callers take the fallback answering path, never a hard failure.
var ErrNoManual = eris.New("manual: no manual available")

// Resolver locates manuals for devices via the catalog.
type Resolver struct {
	catalog    *catalog.Catalog
	manualsDir string
	http       *http.Client
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithHTTPClient sets a custom HTTP client for downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Resolver) {
		r.http = hc
	}
}

// NewResolver creates a Resolver that stores downloaded manuals under
// manualsDir.
func NewResolver(cat *catalog.Catalog, manualsDir string, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:    cat,
		manualsDir: manualsDir,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the local path of the device's manual, downloading it
// first when only a remote source is registered. It returns ErrNoManual when
// the device has no record, the record has no usable location, or the
// download fails. Resolution is attempted fresh on every call, so a
// transient download failure can succeed on the next question.
func (r *Resolver) Resolve(ctx context.Context, identity model.DeviceIdentity) (string, error) {
	rec, ok := r.catalog.Docs(identity.Manufacturer, identity.Model)
	if !ok {
		return "", ErrNoManual
	}

	if rec.LocalPath == "" {
		return "", ErrNoManual
	}

	localPath := r.localPath(rec)
	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if rec.RemoteURL == "" {
		return "", ErrNoManual
	}

	if err := r.download(ctx, rec.RemoteURL, localPath); err != nil {
		zap.L().Warn("manual download failed",
			zap.String("device", identity.DisplayName()),
			zap.String("url", rec.RemoteURL),
			zap.Error(err),
		)
		return "", ErrNoManual
	}

	return localPath, nil
}

// Available reports whether a manual is registered for the device, without
// touching the network, and the manual's file name when one is. A registered
// remote source counts as available even before the first download.
func (r *Resolver) Available(identity model.DeviceIdentity) (string, bool) {
	rec, ok := r.catalog.Docs(identity.Manufacturer, identity.Model)
	if !ok {
		return "", false
	}
	switch {
	case rec.LocalPath != "":
		return filepath.Base(rec.LocalPath), true
	case rec.RemoteURL != "":
		return "Remote Manual", true
	}
	return "", false
}

// localPath anchors the record's relative path under the configured manuals
// dir so catalogs stay portable across deployments.
func (r *Resolver) localPath(rec model.ManualRecord) string {
	if filepath.IsAbs(rec.LocalPath) {
		return rec.LocalPath
	}
	return filepath.Join(r.manualsDir, filepath.Base(rec.LocalPath))
}

// download fetches url and persists it at dest atomically (temp file then
// rename), so a concurrent reader never observes a partial manual.
// Transient fetch failures are retried with backoff before the caller
// degrades to the no-manual path.
func (r *Resolver) download(ctx context.Context, url, dest string) error {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("manual", "download")
	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return r.fetch(ctx, url, dest)
	})
}

func (r *Resolver) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "manual: create download request")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "manual: fetch %s", url)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("manual: fetch %s: status %d", url, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return eris.Wrap(err, "manual: create manuals dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return eris.Wrap(err, "manual: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrapf(err, "manual: write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "manual: close temp file")
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "manual: rename to %s", dest)
	}

	zap.L().Info("manual downloaded",
		zap.String("url", url),
		zap.String("path", dest),
	)
	return nil
}
