// Package ingest turns user-supplied asset references into local files the
// resolver can read. References are local paths, directories or http(s) URLs.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/source"
)

// AllowedExtensions is the upload allow-list.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "webp", "pdf", "mp4", "mov", "avi", "mkv"}

// MaxDownloadSize bounds a single remote asset.
const MaxDownloadSize = 512 << 20

func Allowed(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, e := range AllowedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

type Ingester struct {
	workDir string
	client  *http.Client
}

// New stores downloads under workDir. A nil client gets a 2 minute timeout.
func New(workDir string, client *http.Client) *Ingester {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Ingester{workDir: workDir, client: client}
}

// Fetch returns the local paths for one reference. Directories expand to their
// supported files in name order.
func (in *Ingester) Fetch(ctx context.Context, ref string) ([]string, error) {
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		p, err := in.download(ctx, u)
		if err != nil {
			return nil, err
		}
		return []string{p}, nil
	}

	fi, err := os.Stat(ref)
	if err != nil {
		return nil, &media.UnsupportedAssetError{Path: ref, Err: err}
	}
	if fi.IsDir() {
		paths, err := source.Expand(ref)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, p := range paths {
			if Allowed(p) {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, &media.EmptySequenceError{What: "asset in " + ref}
		}
		return out, nil
	}
	if !Allowed(ref) {
		return nil, &media.UnsupportedAssetError{Path: ref, Err: fmt.Errorf("extension not allowed")}
	}
	return []string{ref}, nil
}

// FetchAll ingests every reference in order.
func (in *Ingester) FetchAll(ctx context.Context, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, &media.EmptySequenceError{What: "asset"}
	}
	var out []string
	for _, ref := range refs {
		paths, err := in.Fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, paths...)
	}
	return out, nil
}

func (in *Ingester) download(ctx context.Context, u *url.URL) (string, error) {
	name := path.Base(u.Path)
	if !Allowed(name) {
		return "", &media.UnsupportedAssetError{Path: u.String(), Err: fmt.Errorf("extension not allowed")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := in.client.Do(req)
	if err != nil {
		return "", &media.UnsupportedAssetError{Path: u.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &media.UnsupportedAssetError{Path: u.String(), Err: fmt.Errorf("download status %d", resp.StatusCode)}
	}

	if err := os.MkdirAll(in.workDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(in.workDir, uuid.NewString()+strings.ToLower(filepath.Ext(name)))
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, MaxDownloadSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxDownloadSize {
		err = fmt.Errorf("larger than %d bytes", MaxDownloadSize)
	}
	if err != nil {
		os.Remove(dst)
		return "", &media.UnsupportedAssetError{Path: u.String(), Err: err}
	}

	log.Debug().Str("url", u.String()).Str("path", dst).Int64("bytes", n).Msg("asset downloaded")
	return dst, nil
}
