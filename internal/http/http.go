// Package http wraps retryablehttp for outbound requests.
package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

type Doer interface {
	Do(*retryablehttp.Request) (*http.Response, error)
}

type Client struct {
	*retryablehttp.Client
}

var _ Doer = (*retryablehttp.Client)(nil)

func New() *Client {
	c := retryablehttp.NewClient()
	c.Logger = nil
	return &Client{Client: c}
}

func ExpectStatus2xx(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
