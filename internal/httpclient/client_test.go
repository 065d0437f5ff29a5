package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	// Test with nil config
	client := New(nil)
	if client == nil {
		t.Fatal("Expected client to be created with nil config")
		return
	}
	if client.config.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", client.config.Timeout)
	}
	if client.config.MaxRetries != 0 {
		t.Errorf("Expected no retries by default, got %d", client.config.MaxRetries)
	}
	if client.config.CallbackParam != "callback" {
		t.Errorf("Expected default callback param 'callback', got %q", client.config.CallbackParam)
	}

	// Test with custom config
	config := &Config{
		Timeout:    10 * time.Second,
		MaxRetries: 5,
		RetryDelay: 2 * time.Second,
	}
	client = New(config)
	if client.config.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", client.config.Timeout)
	}
	if client.config.MaxRetries != 5 {
		t.Errorf("Expected max retries 5, got %d", client.config.MaxRetries)
	}
}

func TestGet(t *testing.T) {
	// Create test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		if r.Header.Get("Test-Header") != "test-value" {
			t.Errorf("Expected test header, got %s", r.Header.Get("Test-Header"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"success"}`))
	}))
	defer server.Close()

	client := New(nil)
	headers := map[string]string{
		"Test-Header": "test-value",
	}

	resp, err := client.Get(context.Background(), server.URL, headers)
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}
	defer func() { _ = resp.SafeClose() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(resp.BodyBytes) != `{"message":"success"}` {
		t.Errorf("Unexpected body: %s", resp.BodyBytes)
	}
}

func TestErrorHandling(t *testing.T) {
	// Test server that returns 404
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(nil)
	resp, err := client.Get(context.Background(), server.URL, nil)
	if err == nil {
		t.Error("Expected error for 404 response")
	}
	if resp == nil {
		t.Error("Expected response even with error")
	} else {
		defer func() { _ = resp.SafeClose() }()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", resp.StatusCode)
		}
	}
}

func TestRetryLogic(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			// Fail first 2 attempts
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("server error"))
		} else {
			// Succeed on 3rd attempt
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("success"))
		}
	}))
	defer server.Close()

	config := &Config{
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RetryDelay: 10 * time.Millisecond, // Short delay for test
	}
	client := New(config)

	resp, err := client.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Request should succeed after retries: %v", err)
	}
	defer func() { _ = resp.SafeClose() }()

	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestTimeoutHandling(t *testing.T) {
	// Server with delay
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := &Config{
		Timeout:    50 * time.Millisecond, // Very short timeout
		MaxRetries: 0,
	}
	client := New(config)

	_, err := client.Get(context.Background(), server.URL, nil)
	if err == nil {
		t.Error("Expected timeout error")
	}
	if !strings.Contains(err.Error(), "timeout") && !strings.Contains(err.Error(), "deadline") {
		t.Errorf("Expected timeout-related error, got: %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, server.URL, nil)
	if err == nil {
		t.Error("Expected context cancellation error")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Expected context deadline exceeded, got: %v", err)
	}
}

func TestSafeClose(t *testing.T) {
	resp := &Response{}

	// Test with nil response
	err := resp.SafeClose()
	if err != nil {
		t.Errorf("SafeClose should not error with nil response: %v", err)
	}

	// Test with nil body
	resp.Response = &http.Response{}
	err = resp.SafeClose()
	if err != nil {
		t.Errorf("SafeClose should not error with nil body: %v", err)
	}
}

func TestGetJSONPlain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "XYZ" {
			t.Errorf("Expected access_token XYZ, got %s", r.URL.Query().Get("access_token"))
		}
		if !strings.HasPrefix(r.URL.Query().Get("callback"), "jsonp_") {
			t.Errorf("Expected generated callback name, got %s", r.URL.Query().Get("callback"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"meta":{"code":200},"data":{"id":"1"}}`))
	}))
	defer server.Close()

	client := New(nil)
	var payload struct {
		Meta struct {
			Code int `json:"code"`
		} `json:"meta"`
		Data map[string]interface{} `json:"data"`
	}
	if err := client.GetJSON(context.Background(), server.URL+"/oauth/userinfo/?access_token=XYZ", &payload); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if payload.Meta.Code != 200 {
		t.Errorf("Expected meta code 200, got %d", payload.Meta.Code)
	}
	if payload.Data["id"] != "1" {
		t.Errorf("Expected id '1', got %v", payload.Data["id"])
	}
}

func TestGetJSONP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callback := r.URL.Query().Get("callback")
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte("/**/ " + callback + `({"meta":{"code":401}});`))
	}))
	defer server.Close()

	client := New(nil)
	var payload struct {
		Meta struct {
			Code int `json:"code"`
		} `json:"meta"`
	}
	if err := client.GetJSON(context.Background(), server.URL, &payload); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if payload.Meta.Code != 401 {
		t.Errorf("Expected meta code 401, got %d", payload.Meta.Code)
	}
}

func TestGetJSONWithoutCallbackParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["callback"]; ok {
			t.Error("Expected no callback parameter")
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.CallbackParam = ""
	client := New(config)

	var payload map[string]bool
	if err := client.GetJSON(context.Background(), server.URL, &payload); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if !payload["ok"] {
		t.Error("Expected ok to be true")
	}
}

func TestGetJSONErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "HTTP error status with text body", status: http.StatusInternalServerError, body: "server error"},
		{name: "HTTP error status with empty body", status: http.StatusUnauthorized, body: ""},
		{name: "HTML body", status: http.StatusOK, body: "<html>oops</html>"},
		{name: "empty body", status: http.StatusOK, body: ""},
		{name: "wrong callback", status: http.StatusOK, body: `other({"meta":{"code":200}})`},
		{name: "broken JSON", status: http.StatusOK, body: `{"meta":`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			var payload map[string]interface{}
			if err := New(nil).GetJSON(context.Background(), server.URL, &payload); err == nil {
				t.Errorf("Expected error for %s", tc.name)
			}
		})
	}
}

func TestGetJSONErrorStatusWithPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(r.URL.Query().Get("callback") + `({"meta":{"code":401,"error_type":"invalid_token"}});`))
	}))
	defer server.Close()

	var payload struct {
		Meta struct {
			Code int `json:"code"`
		} `json:"meta"`
	}
	if err := New(nil).GetJSON(context.Background(), server.URL, &payload); err != nil {
		t.Fatalf("Expected the payload of an error status to decode, got: %v", err)
	}
	if payload.Meta.Code != http.StatusUnauthorized {
		t.Errorf("Expected meta code 401, got %d", payload.Meta.Code)
	}
}

func TestRetryReturnsLastResponse(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	client := New(&Config{Timeout: 5 * time.Second, MaxRetries: 2, RetryDelay: time.Millisecond})
	resp, err := client.Get(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("Expected error after retries")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if resp == nil || resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("Expected the last 502 response, got %v", resp)
	}
	_ = resp.SafeClose()
}

func TestGetJSONNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	var payload map[string]interface{}
	if err := New(nil).GetJSON(context.Background(), serverURL, &payload); err == nil {
		t.Error("Expected error for closed server")
	}
}

func TestUnwrapJSONP(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		callback string
		expected string
		wantErr  bool
	}{
		{name: "plain object", body: ` {"a":1} `, expected: `{"a":1}`},
		{name: "plain array", body: `[1,2]`, expected: `[1,2]`},
		{name: "matching callback", body: `cb_1({"a":1});`, callback: "cb_1", expected: `{"a":1}`},
		{name: "comment prefix", body: "/**/cb_1({\"a\":1})", callback: "cb_1", expected: `{"a":1}`},
		{name: "any callback allowed", body: `whatever ({"a":1})`, expected: `{"a":1}`},
		{name: "callback mismatch", body: `other({"a":1})`, callback: "cb_1", wantErr: true},
		{name: "not JSON", body: `alert(1`, wantErr: true},
		{name: "empty", body: "   ", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := UnwrapJSONP([]byte(tc.body), tc.callback)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error, got payload %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("UnwrapJSONP error: %v", err)
			}
			if string(got) != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestNewCallbackName(t *testing.T) {
	a := NewCallbackName()
	b := NewCallbackName()
	if a == b {
		t.Error("Callback names should be unique")
	}
	if !strings.HasPrefix(a, "jsonp_") || strings.Contains(a, "-") {
		t.Errorf("Unexpected callback name format: %s", a)
	}
}
