// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.httpClient = srv.Client()
	return c, srv
}

func TestClient_Login_RequiresOTP(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"requiresOTP": true}`))
	}))

	res, err := c.Login(context.Background(), "alexj", "patient1234")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !res.RequiresOTP || res.Token != "" {
		t.Errorf("Login() = %+v, want requiresOTP only", res)
	}
}

func TestClient_Login_DirectToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"t1","user":{"_id":"p1","username":"alexj","role":"patient"}}`))
	}))

	res, err := c.Login(context.Background(), "alexj", "patient1234")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.RequiresOTP {
		t.Error("RequiresOTP = true, want false")
	}
	if res.Token != "t1" || res.User == nil || res.User.ID != "p1" || res.User.Role != "patient" {
		t.Errorf("Login() = %+v", res)
	}
}

func TestClient_ServerErrorMessageVerbatim(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid username or password"}`))
	}))

	_, err := c.Login(context.Background(), "alexj", "wrong")
	if err == nil {
		t.Fatal("Login() error = nil, want rejection")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Message != "Invalid username or password" {
		t.Errorf("Message = %q, want server text verbatim", apiErr.Message)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Error("401 should unwrap to ErrUnauthorized")
	}
	if got := UserMessage(err); got != "Invalid username or password" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestClient_Me_SendsBearerToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer t1" {
			t.Errorf("Authorization = %q, want Bearer t1", got)
		}
		w.Write([]byte(`{"user":{"_id":"p1","username":"alexj","role":"patient","isVerified":true}}`))
	}))

	u, err := c.Me(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if u.ID != "p1" || !u.Verified {
		t.Errorf("Me() = %+v", u)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"records":[]}`))
	}))
	// Keep the test fast; one retry is enough to prove the loop.
	c.maxRetries = 1

	if _, err := c.ListRecords(context.Background(), "t1"); err != nil {
		t.Fatalf("ListRecords() after retry error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"Forbidden"}`))
	}))

	_, err := c.ListUsers(context.Background(), "t1")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (4xx is final)", calls.Load())
	}
}

func TestClient_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listening anymore

	c, err := NewClient(url)
	if err != nil {
		t.Fatal(err)
	}
	c.maxRetries = 0

	_, err = c.ListRecords(context.Background(), "t1")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestClient_DecryptRecord(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/records/rec-1/decrypt" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"content":"BP 120/80","createdBy":"drwilliams"},"signatureValid":false}`))
	}))

	res, err := c.DecryptRecord(context.Background(), "t1", "rec-1")
	if err != nil {
		t.Fatalf("DecryptRecord() error = %v", err)
	}
	// signatureValid false arrives on a successful response; it is a
	// trust verdict, not a failure.
	if res.SignatureValid {
		t.Error("SignatureValid = true, want false carried verbatim")
	}
	if res.Data.Content != "BP 120/80" {
		t.Errorf("Content = %q", res.Data.Content)
	}
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	if _, err := NewClient("ftp://portal"); err == nil {
		t.Error("NewClient() accepted ftp scheme")
	}
}
