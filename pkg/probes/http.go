package probes

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPBeacon issues one GET against http://host:port/path with the given
// user-agent and discards the response body. Total time is bounded by the
// probe timeout.
func (p *Probes) HTTPBeacon(ctx context.Context, host string, port int, path, userAgent string) {
	url := fmt.Sprintf("http://%s:%d/%s", host, port, path)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	outcome := "sent"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		outcome = "failed"
	} else {
		req.Header.Set("User-Agent", userAgent)
		client := &http.Client{Timeout: p.timeout}
		resp, err := client.Do(req)
		if err != nil {
			outcome = "failed"
			p.logger.Debug().Err(err).Str("url", url).Msg("HTTP beacon attempt failed.")
		} else {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
		}
	}

	p.sink.Record(KindHTTPBeacon, fmt.Sprintf("%s:%d", host, port),
		fmt.Sprintf("path=/%s user_agent=%q outcome=%s", path, userAgent, outcome))
}
