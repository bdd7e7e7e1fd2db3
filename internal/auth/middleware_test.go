package auth

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	creds  Credentials
	ok     bool
	body   string
	called bool
}

func runMiddleware(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *captured) {
	t.Helper()
	got := &captured{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.called = true
		got.creds, got.ok = FromContext(r.Context())
		b, _ := io.ReadAll(r.Body)
		got.body = string(b)
		w.WriteHeader(http.StatusNoContent)
	})
	onMissing := func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusBadRequest)
	}

	rec := httptest.NewRecorder()
	CredentialsMiddleware(onMissing)(next).ServeHTTP(rec, req)
	return rec, got
}

func TestCredentialsMiddleware_JSONBodyIsRestored(t *testing.T) {
	body := `{"username":"alice","password":"pw1","filename":"alice/1_a.jpg"}`
	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	rec, got := runMiddleware(t, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, got.ok)
	assert.Equal(t, Credentials{Username: "alice", Password: "pw1"}, got.creds)
	assert.JSONEq(t, body, got.body)
}

func TestCredentialsMiddleware_URLEncoded(t *testing.T) {
	form := url.Values{"username": {"bob"}, "password": {"pw2"}}
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec, got := runMiddleware(t, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, Credentials{Username: "bob", Password: "pw2"}, got.creds)
}

func TestCredentialsMiddleware_Multipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("username", "carol"))
	require.NoError(t, mw.WriteField("password", "pw3"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec, got := runMiddleware(t, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, Credentials{Username: "carol", Password: "pw3"}, got.creds)
}

func TestCredentialsMiddleware_Missing(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "empty json", contentType: "application/json", body: ""},
		{name: "no password", contentType: "application/json", body: `{"username":"alice"}`},
		{name: "no username", contentType: "application/json", body: `{"password":"pw"}`},
		{name: "malformed json", contentType: "application/json", body: `{"username":`},
		{name: "wrong type", contentType: "application/json", body: `{"username":1,"password":"pw"}`},
		{name: "empty form", contentType: "application/x-www-form-urlencoded", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			rec, got := runMiddleware(t, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, got.called)
		})
	}
}

func TestFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := FromContext(req.Context())
	assert.False(t, ok)
}
