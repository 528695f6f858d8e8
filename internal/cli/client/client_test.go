package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reasoned-dev/reasoned/internal/cli/session"
	"github.com/reasoned-dev/reasoned/internal/cli/storage"
)

// newTestClient returns a client whose base URL override points at serverURL
func newTestClient(t *testing.T, serverURL string) (*Client, *storage.Memory) {
	t.Helper()

	store := storage.NewMemory()
	require.NoError(t, store.Set(session.KeyAPIBase, serverURL))

	c, err := New("https://quiz.example.com", session.NewManager(store, nil))
	require.NoError(t, err)
	return c, store
}

func respondWith(contentType string, status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		override string
		origin   string
		want     string
	}{
		{name: "override wins", override: "https://api.example.com", origin: "http://localhost:5500", want: "https://api.example.com"},
		{name: "override trailing slash trimmed", override: "https://api.example.com/", origin: "https://quiz.example.com", want: "https://api.example.com"},
		{name: "localhost uses local backend", origin: "http://localhost:5500", want: LocalBackendURL},
		{name: "loopback ip uses local backend", origin: "http://127.0.0.1:3000", want: LocalBackendURL},
		{name: "same origin otherwise", origin: "https://quiz.example.com", want: "https://quiz.example.com"},
		{name: "origin path dropped", origin: "https://quiz.example.com:8443/app/dashboard.html", want: "https://quiz.example.com:8443"},
		{name: "blank override ignored", override: "   ", origin: "https://quiz.example.com", want: "https://quiz.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveBaseURL(tt.override, mustParseURL(t, tt.origin))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_InvalidOrigin(t *testing.T) {
	sess := session.NewManager(storage.NewMemory(), nil)

	_, err := New("quiz.example.com", sess)
	require.Error(t, err)

	_, err = New("://bad", sess)
	require.Error(t, err)
}

func TestClient_BaseURLFromSession(t *testing.T) {
	store := storage.NewMemory()
	c, err := New("http://localhost:5500", session.NewManager(store, nil))
	require.NoError(t, err)

	base, err := c.BaseURL()
	require.NoError(t, err)
	assert.Equal(t, LocalBackendURL, base)

	require.NoError(t, store.Set(session.KeyAPIBase, "https://override.example.com"))
	base, err = c.BaseURL()
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", base)
}

func TestRequest_AuthorizationHeader(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		_, present := r.Header["Authorization"]
		if !present {
			got[len(got)-1] = "<absent>"
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c, store := newTestClient(t, srv.URL)

	_, err := c.Request(context.Background(), "/api/me", nil)
	require.NoError(t, err)

	require.NoError(t, store.Set(session.KeyToken, "t0k3n"))
	_, err = c.Request(context.Background(), "/api/me", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"<absent>", "Bearer t0k3n"}, got)
}

func TestRequest_ContentTypeDefaulting(t *testing.T) {
	tests := []struct {
		name   string
		opts   *RequestOptions
		wantCT string
	}{
		{name: "no body sets nothing", opts: &RequestOptions{Method: http.MethodGet}, wantCT: ""},
		{name: "struct body is json", opts: &RequestOptions{Method: http.MethodPost, Body: map[string]int{"n": 10}}, wantCT: "application/json"},
		{
			name: "explicit content type kept",
			opts: &RequestOptions{
				Method: http.MethodPost,
				Header: http.Header{"Content-Type": []string{"text/plain"}},
				Body:   "hello",
			},
			wantCT: "text/plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCT, gotBody string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotCT = r.Header.Get("Content-Type")
				b, _ := io.ReadAll(r.Body)
				gotBody = string(b)
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, `{"ok":true}`)
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv.URL)
			_, err := c.Request(context.Background(), "/api/x", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCT, gotCT)
			if tt.opts.Body == nil {
				assert.Empty(t, gotBody)
			}
		})
	}
}

func TestRequest_JSONBodyEncoding(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.Request(context.Background(), "/api/login", &RequestOptions{
		Method: http.MethodPost,
		Body:   AuthRequest{Username: "ana", Password: "secret1"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"ana","password":"secret1"}`, gotBody)
}

func TestRequest_NormalizesBodies(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{name: "valid json round-trips", contentType: "application/json", body: `{"a":1,"b":[true,null,"x"]}`, want: `{"a":1,"b":[true,null,"x"]}`},
		{name: "json array", contentType: "application/json; charset=utf-8", body: `[{"id":1}]`, want: `[{"id":1}]`},
		{name: "empty json body", contentType: "application/json", body: "", want: `{}`},
		{name: "whitespace json body", contentType: "application/json", body: "  \n", want: `{}`},
		{name: "malformed json", contentType: "application/json", body: `{"a":`, want: `{"_raw":"{\"a\":"}`},
		{name: "problem+json", contentType: "application/problem+json", body: `{"title":"x"}`, want: `{"title":"x"}`},
		{name: "plain text", contentType: "text/plain", body: "pong", want: `{"detail":"pong"}`},
		{name: "no content type", contentType: "", body: "<html></html>", want: `{"detail":"<html></html>"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(respondWith(tt.contentType, http.StatusOK, tt.body))
			defer srv.Close()

			c, _ := newTestClient(t, srv.URL)
			resp, err := c.Request(context.Background(), "/api/x", nil)
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, tt.want, string(resp.Body))
		})
	}
}

func TestRequest_HTTPErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantDetail  string
	}{
		{name: "detail field", status: http.StatusUnauthorized, contentType: "application/json", body: `{"detail":"expired token"}`, wantDetail: "expired token"},
		{name: "quota", status: http.StatusPaymentRequired, contentType: "application/json", body: `{"detail":"Free limit reached (5x)."}`, wantDetail: "Free limit reached (5x)."},
		{name: "non-string detail", status: http.StatusUnprocessableEntity, contentType: "application/json", body: `{"detail":[{"msg":"bad"}]}`, wantDetail: `[{"msg":"bad"}]`},
		{name: "no detail", status: http.StatusInternalServerError, contentType: "application/json", body: `{"error":"boom"}`, wantDetail: "HTTP 500"},
		{name: "empty body", status: http.StatusNotFound, contentType: "application/json", body: "", wantDetail: "HTTP 404"},
		{name: "malformed json", status: http.StatusBadGateway, contentType: "application/json", body: "upstream down", wantDetail: "upstream down"},
		{name: "plain text", status: http.StatusServiceUnavailable, contentType: "text/plain", body: "maintenance", wantDetail: "maintenance"},
		{name: "redirect status is an error", status: http.StatusNotModified, contentType: "", body: "", wantDetail: "HTTP 304"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(respondWith(tt.contentType, tt.status, tt.body))
			defer srv.Close()

			c, _ := newTestClient(t, srv.URL)
			resp, err := c.Request(context.Background(), "/api/me", nil)
			require.Error(t, err)
			assert.Nil(t, resp)

			var httpErr *HTTPError
			require.True(t, errors.As(err, &httpErr), "expected *HTTPError, got %T", err)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.wantDetail, httpErr.Detail)
			assert.False(t, IsNetworkError(err))
		})
	}
}

func TestRequest_ExpiredTokenScenario(t *testing.T) {
	srv := httptest.NewServer(respondWith("application/json", http.StatusUnauthorized, `{"detail":"expired token"}`))
	defer srv.Close()

	c, store := newTestClient(t, srv.URL)
	require.NoError(t, store.Set(session.KeyToken, "stale"))

	_, err := c.Request(context.Background(), "/api/me", nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 401, httpErr.StatusCode)
	assert.Equal(t, "expired token", httpErr.Detail)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsQuotaExhausted(err))
	assert.Equal(t, "expired token (status 401)", err.Error())
}

func TestRequest_NetworkError(t *testing.T) {
	srv := httptest.NewServer(respondWith("application/json", http.StatusOK, `{}`))
	deadURL := srv.URL
	srv.Close()

	c, _ := newTestClient(t, deadURL)
	resp, err := c.Request(context.Background(), "/api/me", nil)
	require.Error(t, err)
	assert.Nil(t, resp)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.MethodGet, netErr.Method)
	assert.Equal(t, deadURL+"/api/me", netErr.URL)
	assert.True(t, IsNetworkError(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestRequest_NoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		respondWith("application/json", http.StatusInternalServerError, `{"detail":"boom"}`)(w, r)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.Request(context.Background(), "/api/generate_set", &RequestOptions{Method: http.MethodPost, Body: map[string]any{}})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRequest_SendsRequestID(t *testing.T) {
	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	for i := 0; i < 2; i++ {
		_, err := c.Request(context.Background(), "/api/meta", nil)
		require.NoError(t, err)
	}

	require.Len(t, ids, 2)
	assert.Len(t, ids[0], 26)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestResponse_DecodeAndObject(t *testing.T) {
	resp := &Response{StatusCode: 200, Body: []byte(`{"user":"ana","free_limit":5,"attempts_used":2}`)}

	var me Me
	require.NoError(t, resp.Decode(&me))
	assert.Equal(t, "ana", me.User)
	assert.Equal(t, 3, me.Remaining())

	obj := resp.Object()
	require.NotNil(t, obj)
	assert.Equal(t, "ana", obj["user"])

	arr := &Response{Body: []byte(`[1,2]`)}
	assert.Nil(t, arr.Object())
}
