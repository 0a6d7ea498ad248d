package payments

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// send performs a single outbound call. No retries here: upstream failures
// surface to the caller (see apperr.Upstream), never loop.
func send(ctx context.Context, hc *http.Client, method, url string, headers map[string]string, body []byte) (int, []byte, error) {
	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}

// upstreamBody keeps enough of a provider response for diagnosis without
// flooding logs.
func upstreamBody(status int, body []byte) error {
	const max = 512
	if len(body) > max {
		body = body[:max]
	}
	return fmt.Errorf("provider responded %d: %s", status, string(body))
}
