package media

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // album art decoders
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	// artFetchTimeout bounds the download of remote album art.
	artFetchTimeout = 3 * time.Second

	// maxArtSize caps the bytes read from an art source (8MB).
	maxArtSize = 8 * 1024 * 1024
)

// ArtLoader fetches and decodes album art from an MPRIS art reference.
type ArtLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// ArtFetcher loads file:// art from fs and http(s):// art over HTTP.
type ArtFetcher struct {
	client *http.Client
	fs     afero.Fs
}

// NewArtFetcher creates an ArtFetcher. A nil client uses http.DefaultClient.
func NewArtFetcher(client *http.Client, fs afero.Fs) *ArtFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &ArtFetcher{client: client, fs: fs}
}

// Load implements ArtLoader.
func (f *ArtFetcher) Load(ctx context.Context, ref string) (image.Image, error) {
	switch {
	case ref == "":
		return nil, fmt.Errorf("empty art reference")

	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("invalid art reference %q: %w", ref, err)
		}
		file, err := f.fs.Open(u.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open album art: %w", err)
		}
		defer file.Close()
		return decode(file)

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return f.download(ctx, ref)

	default:
		return nil, fmt.Errorf("unsupported art reference %q", ref)
	}
}

func (f *ArtFetcher) download(ctx context.Context, ref string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, artFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build art request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download album art: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("album art request returned %s", resp.Status)
	}

	return decode(resp.Body)
}

func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(io.LimitReader(r, maxArtSize))
	if err != nil {
		return nil, fmt.Errorf("failed to decode album art: %w", err)
	}
	return img, nil
}
