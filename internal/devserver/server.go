// Package devserver is an in-memory reference implementation of the sync
// server wire contract. It backs the end-to-end tests and the local
// development binary; it is not a production server.
//
// All state lives behind one mutex, which makes the conditional vault write
// genuinely atomic: the expected-version check and the apply happen under
// the same lock.
package devserver

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/avelesk/notevault/internal/logger"
	"github.com/avelesk/notevault/models"
)

const (
	headerVaultVersion = "X-Vault-Version"
	headerVaultIV      = "X-Vault-IV"
)

// Server holds the in-memory account state.
type Server struct {
	signKey []byte
	log     *logger.Logger

	mu             sync.Mutex
	records        map[string]models.RecordItem
	vaultBody      []byte
	vaultIV        []byte
	vaultVersion   int64
	vaultUpdatedAt time.Time
	keyCheck       models.EncryptedPayload
	failNext       int
}

// New constructs an empty Server signing tokens with signKey.
func New(signKey []byte, log *logger.Logger) *Server {
	return &Server{
		signKey: signKey,
		log:     log,
		records: make(map[string]models.RecordItem),
	}
}

// SetKeyCheck installs the account's key verification vector served by
// GET /api/keycheck.
func (s *Server) SetKeyCheck(check models.EncryptedPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyCheck = check
}

// VaultVersion returns the current server-side vault version.
func (s *Server) VaultVersion() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vaultVersion
}

// RecordCount returns how many records the server currently holds.
func (s *Server) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// FailNext makes the next n requests fail with 503, simulating an outage.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// IssueToken signs a bearer token for the given account subject, valid for
// 24 hours.
func (s *Server) IssueToken(subject string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Routes builds the HTTP handler implementing the wire contract.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withLogger)
	r.Use(s.withOutageSimulation)
	r.Use(s.requireBearer)

	r.Get("/api/records", s.listRecords)
	r.Post("/api/records", s.createRecord)
	r.Put("/api/records/{id}", s.updateRecord)
	r.Delete("/api/records/{id}", s.deleteRecord)

	r.Get("/api/keycheck", s.getKeyCheck)
	r.Put("/api/keycheck", s.putKeyCheck)

	r.Get("/api/vault", s.getVault)
	r.Get("/api/vault/meta", s.getVaultMetadata)
	r.Put("/api/vault", s.putVault)

	return r
}

func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := s.log.WithContext(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) withOutageSimulation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		failing := s.failNext > 0
		if failing {
			s.failNext--
		}
		s.mu.Unlock()

		if failing {
			http.Error(w, "simulated outage", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		_, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.signKey, nil
		})
		if err != nil {
			logger.FromRequest(r).Warn().Err(err).Msg("rejected bearer token")
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := make([]models.RecordItem, 0, len(s.records))
	for _, item := range s.records {
		items = append(items, item)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.RecordListResponse{Items: items})
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	var req models.RecordUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed record upload", http.StatusBadRequest)
		return
	}
	if req.Item.ID == "" {
		http.Error(w, "record id required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.records[req.Item.ID] = req.Item
	s.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.RecordUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed record upload", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	req.Item.ID = id
	s.records[id] = req.Item
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	delete(s.records, id)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getKeyCheck(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	check := s.keyCheck
	s.mu.Unlock()

	if check.IsZero() {
		http.Error(w, "no key check configured", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, models.KeyCheckResponse{Check: check})
}

func (s *Server) putKeyCheck(w http.ResponseWriter, r *http.Request) {
	var req models.KeyCheckResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Check.IsZero() {
		http.Error(w, "malformed key check", http.StatusBadRequest)
		return
	}

	s.SetKeyCheck(req.Check)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getVault(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vaultBody == nil {
		http.Error(w, "no vault uploaded", http.StatusNotFound)
		return
	}

	w.Header().Set(headerVaultVersion, strconv.FormatInt(s.vaultVersion, 10))
	w.Header().Set(headerVaultIV, base64.StdEncoding.EncodeToString(s.vaultIV))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.vaultBody)
}

func (s *Server) getVaultMetadata(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vaultBody == nil {
		http.Error(w, "no vault uploaded", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, models.VaultMetadata{
		Version:      s.vaultVersion,
		IV:           s.vaultIV,
		UpdatedAt:    models.MillisFromTime(s.vaultUpdatedAt),
		LastSyncedAt: models.MillisFromTime(s.vaultUpdatedAt),
	})
}

func (s *Server) putVault(w http.ResponseWriter, r *http.Request) {
	expected, err := strconv.ParseInt(r.Header.Get(headerVaultVersion), 10, 64)
	if err != nil {
		http.Error(w, "malformed expected version", http.StatusBadRequest)
		return
	}
	iv, err := base64.StdEncoding.DecodeString(r.Header.Get(headerVaultIV))
	if err != nil {
		http.Error(w, "malformed vault iv", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read vault body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Compare-and-swap under the lock: stale writers lose atomically.
	if expected != s.vaultVersion {
		http.Error(w, fmt.Sprintf("version conflict: server at %d, client expected %d", s.vaultVersion, expected), http.StatusConflict)
		return
	}

	s.vaultBody = body
	s.vaultIV = iv
	s.vaultVersion++
	s.vaultUpdatedAt = time.Now().UTC()

	writeJSON(w, http.StatusOK, models.VaultUploadResponse{
		Version:   s.vaultVersion,
		UpdatedAt: models.MillisFromTime(s.vaultUpdatedAt),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
