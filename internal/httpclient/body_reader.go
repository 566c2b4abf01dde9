package httpclient

import (
	"io"
	"net/http"
)

// MaxBodyBytes caps how much of a response body is kept for checks.
const MaxBodyBytes = 1 << 20

// ReadBody reads at most limit bytes of the response body, discards the rest
// so the connection can be reused, and closes the body.
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, nil
	}
	defer resp.Body.Close()

	if limit <= 0 {
		limit = MaxBodyBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return data, err
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return data, err
}
