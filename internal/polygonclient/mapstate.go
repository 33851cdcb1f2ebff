package polygonclient

import (
	"context"
	"net/http"
)

// SaveMapState stores state as the caller's map view.
func (c *Client) SaveMapState(ctx context.Context, state interface{}) error {
	return c.do(ctx, http.MethodPost, "/api/session/save-state", nil, map[string]interface{}{"map_state": state}, nil)
}

// LoadMapState decodes the saved map view into into. It reports false when
// nothing was saved.
func (c *Client) LoadMapState(ctx context.Context, into interface{}) (bool, error) {
	raw, err := c.send(ctx, http.MethodGet, "/api/session/get-state", nil, nil)
	if err != nil {
		return false, err
	}
	var env envelope
	if err := decode(raw, &env); err != nil {
		return false, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return false, nil
	}
	return true, decode(env.Data, into)
}
