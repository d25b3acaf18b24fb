// Package httpx owns the HTTP client shared by every outbound integration
// (LLM providers, Slack).
package httpx

import (
	"net/http"
	"sync"
	"time"
)

const defaultExternalHTTPTimeout = 90 * time.Second

var (
	mu                 sync.Mutex
	externalHTTPClient = &http.Client{Timeout: defaultExternalHTTPTimeout}
)

// ExternalHTTPClient returns the shared client. Callers must not change it;
// use ConfigureExternalHTTPClient.
func ExternalHTTPClient() *http.Client {
	mu.Lock()
	defer mu.Unlock()
	return externalHTTPClient
}

// ConfigureExternalHTTPClient sets the request timeout in seconds and
// returns the applied value. Non-positive values restore the default.
func ConfigureExternalHTTPClient(timeoutSeconds int) time.Duration {
	timeout := defaultExternalHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	mu.Lock()
	externalHTTPClient.Timeout = timeout
	mu.Unlock()
	return timeout
}
