package devserver

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelesk/notevault/internal/logger"
	"github.com/avelesk/notevault/models"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()

	srv := New([]byte("unit-test-key"), logger.Nop())
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	token, err := srv.IssueToken("tester")
	require.NoError(t, err)
	return srv, ts, token
}

func do(t *testing.T, method, url, token string, body []byte, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRequireBearer(t *testing.T) {
	_, ts, token := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/records", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/records", "garbage", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/records", token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireBearer_RejectsForeignKey(t *testing.T) {
	_, ts, _ := newTestServer(t)

	claims := jwt.RegisteredClaims{
		Subject:   "intruder",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-key"))
	require.NoError(t, err)

	resp := do(t, http.MethodGet, ts.URL+"/api/records", forged, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPutVault_CompareAndSwap(t *testing.T) {
	srv, ts, token := newTestServer(t)

	headers := func(version string) map[string]string {
		return map[string]string{
			headerVaultVersion: version,
			headerVaultIV:      base64.StdEncoding.EncodeToString([]byte("nonce-12byte")),
		}
	}

	// First upload against the empty vault at version 0.
	resp := do(t, http.MethodPut, ts.URL+"/api/vault", token, []byte("body-v1"), headers("0"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var up models.VaultUploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	assert.Equal(t, int64(1), up.Version)
	assert.Equal(t, int64(1), srv.VaultVersion())

	// Stale expected version loses and changes nothing.
	resp = do(t, http.MethodPut, ts.URL+"/api/vault", token, []byte("stale"), headers("0"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, int64(1), srv.VaultVersion())

	resp = do(t, http.MethodGet, ts.URL+"/api/vault", token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("body-v1"), body)
	assert.Equal(t, "1", resp.Header.Get(headerVaultVersion))

	// Correct expected version wins.
	resp = do(t, http.MethodPut, ts.URL+"/api/vault", token, []byte("body-v2"), headers("1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2), srv.VaultVersion())
}

func TestVaultEndpoints_EmptyAccount(t *testing.T) {
	_, ts, token := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/vault", token, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/vault/meta", token, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOutageSimulation(t *testing.T) {
	srv, ts, token := newTestServer(t)
	srv.FailNext(2)

	for i := 0; i < 2; i++ {
		resp := do(t, http.MethodGet, ts.URL+"/api/records", token, nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/records", token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
