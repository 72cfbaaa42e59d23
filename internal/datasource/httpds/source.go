package httpds

import (
	"context"
	"io"
)

// Source opens a remote file through a Client.
type Source struct {
	client *Client
	url    string
	name   string
}

// NewSource returns a Source for url. A nil client gets a default Client.
func NewSource(client *Client, url string) *Source {
	if client == nil {
		client = NewClient(Config{})
	}
	return &Source{client: client, url: url, name: NameFromURL(url)}
}

// WithName overrides the name derived from the URL.
func (s *Source) WithName(name string) *Source {
	if name != "" {
		s.name = name
	}
	return s
}

// Name returns the last path segment of the URL, or a hash when it has none.
func (s *Source) Name() string { return s.name }

// URL returns the configured URL.
func (s *Source) URL() string { return s.url }

// Open downloads the file and returns its body for streaming.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Open(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
