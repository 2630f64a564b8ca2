package httpds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"tabular/internal/config"
	"tabular/internal/errs"
	"tabular/internal/loader"
	"tabular/internal/system"
)

// Control keys read by the remote loader.
const (
	ControlTimeout  = "httpTimeout"
	ControlRetries  = "httpRetries"
	ControlHeaders  = "httpHeaders"
	ControlPreload  = "httpPreload"
	ControlInsecure = "httpInsecure"
)

func init() {
	for _, scheme := range []string{"http", "https"} {
		system.Default.RegisterLoader(scheme, func(spec system.Spec) (system.Loader, error) {
			return loader.New(spec, NewSource(spec.Location.Fullpath, spec.Control), true), nil
		})
	}
}

// Source fetches one URL.
type Source struct {
	url     string
	client  *Client
	headers http.Header
	preload bool
}

// NewSource builds a Source for url configured from control options.
func NewSource(url string, control config.Options) *Source {
	headers := http.Header{}
	for k, v := range control.StringMap(ControlHeaders) {
		headers.Set(k, v)
	}
	return &Source{
		url: url,
		client: NewClient(Config{
			Timeout:            control.Duration(ControlTimeout, 0),
			MaxRetries:         control.Int(ControlRetries, 2),
			InsecureSkipVerify: control.Bool(ControlInsecure, false),
		}),
		headers: headers,
		preload: control.Bool(ControlPreload, false),
	}
}

// Open issues the GET. Statuses of 400 and above are source errors. With
// preload the body is read fully and the connection released before
// returning.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, s.headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		return nil, errs.New(errs.CodeSource, "GET %s: status %d", s.url, resp.StatusCode)
	}
	if !s.preload {
		return resp.Body, nil
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpds: preload %s: %w", s.url, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
