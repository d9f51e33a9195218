package network

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"traffic-observer/src/helpers"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
)

// AsyncNetworkManager performs all REST traffic against the backend. It owns
// the bearer token for the current session and retries transient failures
// with backoff. A 401 aborts retries immediately and surfaces an AuthError.
type AsyncNetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger

	mu    sync.RWMutex
	token string
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	return &AsyncNetworkManager{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Backend.RequestTimeout) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

// SetToken installs the bearer token used on subsequent requests.
func (nm *AsyncNetworkManager) SetToken(token string) {
	nm.mu.Lock()
	nm.token = token
	nm.mu.Unlock()
}

// -----------------------------------------------------------------------------

// ClearToken drops the bearer token, e.g. on logout or session expiry.
func (nm *AsyncNetworkManager) ClearToken() {
	nm.mu.Lock()
	nm.token = ""
	nm.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) currentToken() string {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.token
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries.
func (nm *AsyncNetworkManager) Get(path string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(nm.Config.Backend.BaseURL + path)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	return nm.do("GET", reqUrl.String(), nil)
}

// -----------------------------------------------------------------------------

// Post performs a POST request with a JSON body.
func (nm *AsyncNetworkManager) Post(path string, body []byte) ([]byte, error) {
	return nm.do("POST", nm.Config.Backend.BaseURL+path, body)
}

// -----------------------------------------------------------------------------

// Put performs a PUT request with a JSON body.
func (nm *AsyncNetworkManager) Put(path string, body []byte) ([]byte, error) {
	return nm.do("PUT", nm.Config.Backend.BaseURL+path, body)
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) do(method, urlStr string, body []byte) ([]byte, error) {
	maxRetries := nm.Config.Backend.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i*i) * time.Second) // Exponential backoff
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequest(method, urlStr, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := nm.currentToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := nm.Client.Do(req)
		if err != nil {
			lastErr = err
			nm.Logger.Info("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		// An expired or rejected session is not transient. Stop retrying and
		// let the session layer tear down.
		if resp.StatusCode == 401 {
			return nil, helpers.NewAuthError(fmt.Sprintf("%s %s unauthorized", method, urlStr), nil)
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error (status %d)", resp.StatusCode)
			nm.Logger.Info("Request failed (status %d), retrying", resp.StatusCode)
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, helpers.NewTransportError(
				fmt.Sprintf("%s %s failed (status %d): %s", method, urlStr, resp.StatusCode, string(data)), nil)
		}

		if readErr != nil {
			lastErr = readErr
			continue
		}

		return data, nil
	}

	return nil, helpers.NewTransportError(fmt.Sprintf("%s %s exhausted retries", method, urlStr), lastErr)
}
