package adapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/avelesk/notevault/internal/fetchcache"
	"github.com/avelesk/notevault/models"
)

// HTTPClientConfig carries the settings for the REST adapter.
type HTTPClientConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Vault header names of the wire contract. The body travels raw; version
// and IV ride in headers so one request carries a consistent snapshot.
const (
	headerVaultVersion = "X-Vault-Version"
	headerVaultIV      = "X-Vault-IV"
)

// keyCheckTTL is the cache window for the key verification vector. The
// vector is fixed at account setup, so a long TTL is safe.
const keyCheckTTL = time.Hour

type httpServerAdapter struct {
	client   *resty.Client
	cache    *fetchcache.Cache
	cacheTTL time.Duration

	mu    sync.RWMutex
	token string
}

// NewHTTPServerAdapter constructs the REST [ServerAdapter]. All GET reads
// are routed through cache so concurrent identical reads share one network
// call and repeated reads within the TTL cost nothing.
func NewHTTPServerAdapter(cfg HTTPClientConfig, cache *fetchcache.Cache) ServerAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cache == nil {
		cache = fetchcache.New()
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpServerAdapter{client: cli, cache: cache, cacheTTL: cfg.CacheTTL}
}

func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *httpServerAdapter) ListRecords(ctx context.Context, force bool) ([]models.RecordItem, error) {
	body, err := h.cachedGet(ctx, "/api/records", h.cacheTTL, force)
	if err != nil {
		return nil, err
	}

	var lr models.RecordListResponse
	if err = json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("decode record list response: %w", err)
	}
	return lr.Items, nil
}

func (h *httpServerAdapter) UploadRecord(ctx context.Context, item models.RecordItem) error {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.RecordUploadRequest{Item: item}).
		Post("/api/records")
	if err != nil {
		return mapTransportError("upload record request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return err
	}

	h.invalidateRecordReads()
	return nil
}

func (h *httpServerAdapter) UpdateRecord(ctx context.Context, item models.RecordItem) error {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.RecordUploadRequest{Item: item}).
		Put("/api/records/" + item.ID)
	if err != nil {
		return mapTransportError("update record request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return err
	}

	h.invalidateRecordReads()
	return nil
}

func (h *httpServerAdapter) DeleteRecord(ctx context.Context, id string) error {
	resp, err := h.authedRequest(ctx).Delete("/api/records/" + id)
	if err != nil {
		return mapTransportError("delete record request", err)
	}
	err = mapHTTPError(resp)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	h.invalidateRecordReads()
	return nil
}

func (h *httpServerAdapter) GetKeyCheck(ctx context.Context) (models.EncryptedPayload, error) {
	body, err := h.cachedGet(ctx, "/api/keycheck", keyCheckTTL, false)
	if err != nil {
		return models.EncryptedPayload{}, err
	}

	var kc models.KeyCheckResponse
	if err = json.Unmarshal(body, &kc); err != nil {
		return models.EncryptedPayload{}, fmt.Errorf("decode key check response: %w", err)
	}
	return kc.Check, nil
}

func (h *httpServerAdapter) PutKeyCheck(ctx context.Context, check models.EncryptedPayload) error {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.KeyCheckResponse{Check: check}).
		Put("/api/keycheck")
	if err != nil {
		return mapTransportError("put key check request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return err
	}

	h.cache.Clear(func(key string) bool { return key == "/api/keycheck" })
	return nil
}

func (h *httpServerAdapter) GetVault(ctx context.Context) (models.VaultBlob, error) {
	resp, err := h.authedRequest(ctx).Get("/api/vault")
	if err != nil {
		return models.VaultBlob{}, mapTransportError("get vault request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.VaultBlob{}, err
	}

	version, err := strconv.ParseInt(resp.Header().Get(headerVaultVersion), 10, 64)
	if err != nil {
		return models.VaultBlob{}, fmt.Errorf("parse vault version header: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(resp.Header().Get(headerVaultIV))
	if err != nil {
		return models.VaultBlob{}, fmt.Errorf("decode vault iv header: %w", err)
	}

	return models.VaultBlob{
		Content: models.EncryptedPayload{
			Ciphertext:    append([]byte(nil), resp.Body()...),
			Nonce:         iv,
			SchemaVersion: models.PayloadSchemaVersion,
		},
		Version: version,
	}, nil
}

func (h *httpServerAdapter) GetVaultMetadata(ctx context.Context, force bool) (models.VaultMetadata, error) {
	body, err := h.cachedGet(ctx, "/api/vault/meta", h.cacheTTL, force)
	if err != nil {
		return models.VaultMetadata{}, err
	}

	var meta models.VaultMetadata
	if err = json.Unmarshal(body, &meta); err != nil {
		return models.VaultMetadata{}, fmt.Errorf("decode vault metadata response: %w", err)
	}
	return meta, nil
}

func (h *httpServerAdapter) PutVault(ctx context.Context, content models.EncryptedPayload, expectedVersion int64) (models.VaultUploadResponse, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader(headerVaultVersion, strconv.FormatInt(expectedVersion, 10)).
		SetHeader(headerVaultIV, base64.StdEncoding.EncodeToString(content.Nonce)).
		SetBody(content.Ciphertext).
		Put("/api/vault")
	if err != nil {
		return models.VaultUploadResponse{}, mapTransportError("put vault request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.VaultUploadResponse{}, err
	}

	var ur models.VaultUploadResponse
	if err = json.Unmarshal(resp.Body(), &ur); err != nil {
		return models.VaultUploadResponse{}, fmt.Errorf("decode vault upload response: %w", err)
	}

	h.cache.Clear(func(key string) bool { return strings.HasPrefix(key, "/api/vault") })
	return ur, nil
}

// cachedGet routes a GET through the fetch cache keyed by path.
func (h *httpServerAdapter) cachedGet(ctx context.Context, path string, ttl time.Duration, force bool) ([]byte, error) {
	return h.cache.Fetch(ctx, path, ttl, force, func(ctx context.Context) ([]byte, error) {
		resp, err := h.authedRequest(ctx).Get(path)
		if err != nil {
			return nil, mapTransportError("get "+path, err)
		}
		if err = mapHTTPError(resp); err != nil {
			return nil, err
		}
		return append([]byte(nil), resp.Body()...), nil
	})
}

func (h *httpServerAdapter) invalidateRecordReads() {
	h.cache.Clear(func(key string) bool { return strings.HasPrefix(key, "/api/records") })
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}
