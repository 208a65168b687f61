package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyRewritesPrefixAndForwards(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISteamUser/GetPlayerSummaries/v0002/", r.URL.Path)
		assert.Equal(t, "key=XYZ", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":{}}`))
	}))
	defer upstream.Close()

	p, err := New(upstream.URL)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, PathPrefix+"/ISteamUser/GetPlayerSummaries/v0002/?key=XYZ", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.JSONEq(t, `{"response":{}}`, string(body))
}

func TestProxyPassesUpstreamStatusThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	p, err := New(upstream.URL)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, PathPrefix+"/anything", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestProxyUnreachableUpstreamAnswers502JSON(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // refused connection from here on

	p, err := New(upstream.URL)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, PathPrefix+"/anything", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body)
}

func TestProxyRejectsUnparseableTarget(t *testing.T) {
	_, err := New("://not-a-url")
	assert.Error(t, err)
}
