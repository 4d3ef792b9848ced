package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 8 << 20

// SendJSON posts body as JSON to url and returns the response body. A non-2xx
// answer comes back as a *StatusError tagged with provider, so Resilient can
// tell throttling and outages from bad requests.
func SendJSON(ctx context.Context, client *http.Client, provider, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}

	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	log := logger.With("provider", provider, "req_id", reqID)

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	log.Debug("llm.http.request", "content_length", len(bs))
	resp, err := client.Do(req)
	if err != nil {
		log.Warn("llm.http.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%s: send: %w", provider, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warn("llm.http.body_close_error", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", provider, err)
	}
	log.Info("llm.http.response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Provider: provider, Code: resp.StatusCode, Body: TruncateRunes(string(raw), 512)}
	}
	return raw, nil
}
