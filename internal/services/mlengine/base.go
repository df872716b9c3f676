package mlengine

import (
	"context"
	"fmt"
	"time"

	"ShareWise/pkg/config"
	xhttp "ShareWise/pkg/http"
)

// serviceBase centralizes HTTP client construction and JSON POST handling
// for the model-serving adapters.
type serviceBase struct {
	baseURL string
	retries int
	client  *xhttp.Client
}

func newServiceBase(cfg *config.Config) *serviceBase {
	timeout := cfg.Analytics.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	retries := cfg.Analytics.Retries
	if retries <= 0 {
		retries = 1
	}
	return &serviceBase{
		baseURL: cfg.Analytics.BaseURL,
		retries: retries,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// postJSON posts the payload to `path` under baseURL and decodes JSON into dest.
func (b *serviceBase) postJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("model serving client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// postJSONWithRetry posts JSON with up to `attempts` tries for transient errors.
func (b *serviceBase) postJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.postJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.postJSON(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		// Linear backoff is enough here; the caller falls back to the
		// rule-based engine if all attempts fail.
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
