package dictionary

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	repoOwner = "scriptin"
	repoName  = "jmdict-simplified"
)

// Downloader fetches the jmdict-simplified English common dictionary from its
// latest GitHub release.
type Downloader struct {
	Client *http.Client
	// ReleaseURL overrides the GitHub "latest release" API endpoint.
	ReleaseURL string
	Attempts   uint
	// Delay is the base delay between attempts.
	Delay  time.Duration
	Logger *slog.Logger
}

// EnsureDictionary checks if the dictionary exists at path and downloads it
// with the default Downloader otherwise.
func EnsureDictionary(ctx context.Context, path string) error {
	return (&Downloader{}).Ensure(ctx, path)
}

// Ensure downloads the dictionary to path unless a file already exists there.
func (d *Downloader) Ensure(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	log := d.logger()
	log.Info("dictionary not found, downloading", slog.String("path", path))

	var downloadURL string
	err := retry.Do(
		func() error {
			u, err := d.latestReleaseAssetURL(ctx)
			if err != nil {
				return err
			}
			downloadURL = u
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(d.attempts()),
		retry.Delay(d.delay()),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("failed to find latest dictionary release: %w", err)
	}

	log.Info("downloading dictionary", slog.String("url", downloadURL))
	return retry.Do(
		func() error { return d.downloadAndExtract(ctx, downloadURL, path) },
		retry.Context(ctx),
		retry.Attempts(d.attempts()),
		retry.Delay(d.delay()),
		retry.LastErrorOnly(true),
	)
}

func (d *Downloader) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

func (d *Downloader) attempts() uint {
	if d.Attempts == 0 {
		return 3
	}
	return d.Attempts
}

func (d *Downloader) delay() time.Duration {
	if d.Delay <= 0 {
		return time.Second
	}
	return d.Delay
}

func (d *Downloader) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Downloader) latestReleaseAssetURL(ctx context.Context) (string, error) {
	apiURL := d.ReleaseURL
	if apiURL == "" {
		apiURL = fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", repoOwner, repoName)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	// GitHub API requires a User-Agent
	req.Header.Set("User-Agent", "cardsmith-cli")

	resp, err := d.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github api returned status: %s", resp.Status)
	}

	var release struct {
		Assets []struct {
			Name               string `json:"name"`
			BrowserDownloadURL string `json:"browser_download_url"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}

	// jmdict-eng-common-*.json.tgz
	for _, asset := range release.Assets {
		if strings.Contains(asset.Name, "jmdict-eng-common") && (strings.HasSuffix(asset.Name, ".json.tgz") || strings.HasSuffix(asset.Name, ".json.gz")) {
			return asset.BrowserDownloadURL, nil
		}
	}
	return "", retry.Unrecoverable(errors.New("no suitable dictionary asset found in latest release"))
}

func (d *Downloader) downloadAndExtract(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	gzReader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error reading tar archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !strings.HasSuffix(header.Name, ".json") {
			continue
		}
		return writeFile(destPath, tarReader)
	}
	return retry.Unrecoverable(errors.New("no json file found in downloaded archive"))
}

// writeFile writes r to a temporary file next to path, then renames it.
func writeFile(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jmdict-*.json")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
