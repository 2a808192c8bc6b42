// Copyright 2025 MedBotAssist
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"medbotassist/platform/connectors/base"
)

// connectTo wires a connector to a test server; allow_private_ips is set
// because httptest listens on loopback.
func connectTo(t *testing.T, serverURL string) *HTTPConnector {
	t.Helper()

	conn := NewHTTPConnector()
	err := conn.Connect(context.Background(), &base.ConnectorConfig{
		Name: "patient-backend",
		Type: "http",
		Options: map[string]interface{}{
			"base_url":          serverURL,
			"allow_private_ips": true,
		},
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Disconnect(context.Background()) })
	return conn
}

func TestHTTPConnector_Connect_Validation(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]interface{}
	}{
		{
			name:    "missing base_url",
			options: map[string]interface{}{},
		},
		{
			name: "invalid scheme",
			options: map[string]interface{}{
				"base_url": "ftp://example.com",
			},
		},
		{
			name: "private IP blocked by default",
			options: map[string]interface{}{
				"base_url": "http://127.0.0.1:8080",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := NewHTTPConnector()
			err := conn.Connect(context.Background(), &base.ConnectorConfig{
				Name:    "patient-backend",
				Type:    "http",
				Options: tt.options,
			})
			if err == nil {
				t.Error("expected Connect to fail")
			}
		})
	}
}

func TestHTTPConnector_Execute_BearerOverride(t *testing.T) {
	var gotAuth atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	conn := connectTo(t, server.URL)

	result, err := conn.Execute(context.Background(), &base.Command{
		Action:    "POST",
		Statement: "/Patient/create",
		Parameters: map[string]interface{}{
			"body":         map[string]interface{}{"fullName": "Maria Garcia"},
			"bearer_token": "caller-jwt",
		},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !result.Success {
		t.Errorf("expected success, got message %q", result.Message)
	}
	if auth := gotAuth.Load(); auth != "Bearer caller-jwt" {
		t.Errorf("Authorization = %v, want Bearer caller-jwt", auth)
	}
	if code, _ := result.Metadata["status_code"].(int); code != http.StatusCreated {
		t.Errorf("status_code = %v, want 201", result.Metadata["status_code"])
	}
}

func TestHTTPConnector_Execute_SurfacesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"insufficient permissions"}`))
	}))
	defer server.Close()

	conn := connectTo(t, server.URL)

	result, err := conn.Execute(context.Background(), &base.Command{
		Action:    "PUT",
		Statement: "/Patient/update-patient",
		Parameters: map[string]interface{}{
			"body": map[string]interface{}{"identificationNumber": "123"},
		},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Success {
		t.Error("expected Success=false for HTTP 403")
	}
	if code, _ := result.Metadata["status_code"].(int); code != http.StatusForbidden {
		t.Errorf("status_code = %v, want 403", result.Metadata["status_code"])
	}
	if body, _ := result.Metadata["body"].(string); body != `{"error":"insufficient permissions"}` {
		t.Errorf("body = %q", result.Metadata["body"])
	}
}

func TestHTTPConnector_Execute_SingleAttempt(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	conn := connectTo(t, server.URL)

	result, err := conn.Execute(context.Background(), &base.Command{
		Action:    "POST",
		Statement: "/Patient/create",
		Parameters: map[string]interface{}{
			"body": map[string]interface{}{"fullName": "Maria Garcia"},
		},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Success {
		t.Error("expected Success=false for HTTP 500")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("backend called %d times, want exactly 1 (writes are never retried)", got)
	}
}

func TestHTTPConnector_Execute_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	conn := connectTo(t, server.URL)
	server.Close() // force connection error

	result, err := conn.Execute(context.Background(), &base.Command{
		Action:    "POST",
		Statement: "/Patient/create",
	})
	if err != nil {
		t.Fatalf("Execute should not return Go error on network failure: %v", err)
	}

	if result.Success {
		t.Error("expected Success=false on network failure")
	}
	if result.Message == "" {
		t.Error("expected error details in Message")
	}
}

func TestHTTPConnector_Execute_InvalidMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	conn := connectTo(t, server.URL)

	_, err := conn.Execute(context.Background(), &base.Command{
		Action:    "TRACE",
		Statement: "/Patient/create",
	})
	if err == nil {
		t.Error("expected error for unsupported method")
	}
}

func TestHTTPConnector_Query_JSONArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"fullName": "Maria Garcia"},
			{"fullName": "Jose Perez"},
		})
	}))
	defer server.Close()

	conn := connectTo(t, server.URL)

	result, err := conn.Query(context.Background(), &base.Query{
		Statement: "/Patient/list",
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if result.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", result.RowCount)
	}
	if result.Rows[0]["fullName"] != "Maria Garcia" {
		t.Errorf("first row = %v", result.Rows[0])
	}
}

func TestHTTPConnector_Query_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	conn := connectTo(t, server.URL)

	_, err := conn.Query(context.Background(), &base.Query{
		Statement: "/Patient/missing",
	})
	if err == nil {
		t.Error("expected error for HTTP 404 on query")
	}
}

func TestHTTPConnector_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	conn := connectTo(t, server.URL)

	status, err := conn.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if !status.Healthy {
		t.Errorf("expected healthy, got error %q", status.Error)
	}
	if status.Details["status_code"] != "200" {
		t.Errorf("status_code detail = %q, want 200", status.Details["status_code"])
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"169.254.1.1", true},
		{"0.0.0.0", true},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP %q", tt.ip)
			}
			if got := isPrivateIP(ip); got != tt.private {
				t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.private)
			}
		})
	}
}
