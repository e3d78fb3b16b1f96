package output

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPSink accumulates lines and POSTs them newline-delimited on Flush.
type HTTPSink struct {
	url     string
	headers map[string]string
	client  *http.Client
	pending []string
}

func NewHTTPSink(url string, headers map[string]string) *HTTPSink {
	return &HTTPSink{
		url:     url,
		headers: headers,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (h *HTTPSink) Write(line string) error {
	h.pending = append(h.pending, line)
	return nil
}

func (h *HTTPSink) Flush() error {
	if len(h.pending) == 0 {
		return nil
	}
	body := strings.Join(h.pending, "\n")

	req, err := http.NewRequest(http.MethodPost, h.url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http sink failed with status: %d", resp.StatusCode)
	}

	h.pending = h.pending[:0]
	return nil
}

func (h *HTTPSink) Ready() bool { return true }
