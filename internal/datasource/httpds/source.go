package httpds

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/jonasinn/fitextractor/internal/datasource"
)

// Source is a datasource.Source backed by a URL. The first Open downloads the
// payload; later calls replay the cached bytes. A failed download is retried
// on the next Open.
type Source struct {
	client *Client
	url    string
	name   string

	mu   sync.Mutex
	data []byte
}

var _ datasource.Source = (*Source)(nil)

// NewSource returns a Source for url. The display name is derived with
// NameFromURL.
func NewSource(c *Client, url string) *Source {
	return &Source{client: c, url: url, name: NameFromURL(url)}
}

func (s *Source) Name() string { return s.name }

// URL returns the configured URL.
func (s *Source) URL() string { return s.url }

func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		b, err := s.client.Fetch(ctx, s.url)
		if err != nil {
			return nil, err
		}
		s.data = b
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}
