package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TestContext drives HTTP requests against a running compass instance and
// keeps the last response around for the assertion steps. It is shared by
// every step package through narrow per-package interfaces.
type TestContext struct {
	baseURL    string
	adminToken string
	email      string
	password   string

	client *http.Client

	accessToken string
	lastStatus  int
	lastBody    map[string]interface{}
}

// NewTestContext points the suite at baseURL. adminToken must match the
// server's ADMIN_API_TOKEN; email and password identify the seeded guest
// account used by the destructive scenarios.
func NewTestContext(baseURL, adminToken, email, password string) *TestContext {
	return &TestContext{
		baseURL:    baseURL,
		adminToken: adminToken,
		email:      email,
		password:   password,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state so scenarios stay independent.
func (tc *TestContext) Reset() {
	tc.accessToken = ""
	tc.lastStatus = 0
	tc.lastBody = nil
}

// POST sends a JSON body to path. The stored access token, if any, is
// attached as a bearer credential.
func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.POSTWithHeaders(path, body, nil)
}

// POSTWithHeaders is POST with extra headers, for the operator endpoints.
func (tc *TestContext) POSTWithHeaders(path string, body interface{}, headers map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, tc.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	return tc.do(req)
}

// GET sends a GET request to path with the given extra headers.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequest(http.MethodGet, tc.baseURL+path, nil)
	if err != nil {
		return err
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Non-JSON bodies (the metrics endpoint, for one) are fine;
		// the field assertions just have nothing to look at.
		return nil
	}
	tc.lastBody = decoded
	return nil
}

// StatusCode returns the status of the last response.
func (tc *TestContext) StatusCode() int {
	return tc.lastStatus
}

// GetResponseField looks up a top-level field in the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	if tc.lastBody == nil {
		return nil, fmt.Errorf("no JSON response recorded")
	}
	value, ok := tc.lastBody[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q", field)
	}
	return value, nil
}

// ResponseContains reports whether the last JSON response has the field.
func (tc *TestContext) ResponseContains(field string) bool {
	_, ok := tc.lastBody[field]
	return ok
}

// GetAccessToken returns the bearer token stored by the login steps.
func (tc *TestContext) GetAccessToken() string {
	return tc.accessToken
}

// SetAccessToken stores the bearer token attached to subsequent requests.
// An empty token makes the context anonymous again.
func (tc *TestContext) SetAccessToken(token string) {
	tc.accessToken = token
}

// GetAdminToken returns the operator token for the admin surface.
func (tc *TestContext) GetAdminToken() string {
	return tc.adminToken
}

// Credentials returns the seeded guest account's email and password.
func (tc *TestContext) Credentials() (string, string) {
	return tc.email, tc.password
}
