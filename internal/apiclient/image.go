package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/patrickmn/go-cache"
)

const endpointImage = "image"

// GetImage fetches a library image's bytes from GET /image/{id}.
// Any non-2xx status is a StatusError.
func (c *Client) GetImage(ctx context.Context, id string) ([]byte, error) {
	if c.images != nil {
		if v, ok := c.images.Get(id); ok {
			if b, ok := v.([]byte); ok {
				imageCacheTotal.WithLabelValues("hit").Inc()
				c.log.Debug().Str("image_id", id).Msg("library image cache hit")
				return b, nil
			}
		}
		imageCacheTotal.WithLabelValues("miss").Inc()
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL("/image/"+url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, endpointImage)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Endpoint: endpointImage, Status: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Endpoint: endpointImage, Err: err}
	}
	if c.images != nil {
		c.images.DeleteExpired()
		c.images.Set(id, b, cache.DefaultExpiration)
	}
	return b, nil
}
