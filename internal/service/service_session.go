package service

import (
	"context"
	"fmt"

	"github.com/avelesk/notevault/internal/adapter"
	"github.com/avelesk/notevault/internal/crypto"
	"github.com/avelesk/notevault/internal/logger"
	"github.com/avelesk/notevault/internal/secret"
)

type sessionService struct {
	keys    crypto.KeyService
	session *secret.Vault
	server  adapter.ServerAdapter
}

// NewSessionService constructs the [SessionService] managing the lifecycle
// of the account key held by session.
func NewSessionService(keys crypto.KeyService, session *secret.Vault, server adapter.ServerAdapter) SessionService {
	return &sessionService{keys: keys, session: session, server: server}
}

// SetupAccount implements [SessionService]. The salt is generated exactly
// once here and never rotates; losing it makes every password unlock
// impossible, so the caller must store it durably.
func (s *sessionService) SetupAccount(ctx context.Context, masterPassword string) ([]byte, error) {
	salt, err := s.keys.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("generate account salt: %w", err)
	}

	key, err := s.keys.DeriveKey(masterPassword, salt)
	if err != nil {
		return nil, fmt.Errorf("derive account key: %w", err)
	}

	check, err := s.keys.Encrypt(crypto.KeyCheckPlaintext, key)
	if err != nil {
		return nil, fmt.Errorf("seal key check: %w", err)
	}
	if err = s.server.PutKeyCheck(ctx, check); err != nil {
		return nil, fmt.Errorf("upload key check: %w", err)
	}

	s.session.SetKey(key)
	logger.FromContext(ctx).Info().Str("func", "SetupAccount").Msg("account crypto material initialized")
	return salt, nil
}

// UnlockWithPassword implements [SessionService]. The derivation runs on
// the calling goroutine and is CPU-bound; callers should keep it off the
// interactive path.
func (s *sessionService) UnlockWithPassword(ctx context.Context, masterPassword string, salt []byte) error {
	log := logger.FromContext(ctx)

	key, err := s.keys.DeriveKey(masterPassword, salt)
	if err != nil {
		return fmt.Errorf("derive account key: %w", err)
	}

	check, err := s.server.GetKeyCheck(ctx)
	if err != nil {
		return fmt.Errorf("fetch key check: %w", err)
	}

	if !s.keys.VerifyKey(key, check, crypto.KeyCheckPlaintext) {
		log.Warn().Str("func", "UnlockWithPassword").Msg("key verification failed")
		return ErrKeyMismatch
	}

	s.session.SetKey(key)
	log.Info().Str("func", "UnlockWithPassword").Msg("session unlocked with password")
	return nil
}

func (s *sessionService) UnlockWithGate(ctx context.Context, reason string) error {
	if _, err := s.session.UnlockWithGate(ctx, reason); err != nil {
		return fmt.Errorf("unlock with gate: %w", err)
	}
	logger.FromContext(ctx).Info().Str("func", "UnlockWithGate").Msg("session unlocked through access gate")
	return nil
}

func (s *sessionService) EnrollGate(ctx context.Context, reason string) error {
	if err := s.session.Enroll(ctx, reason); err != nil {
		return fmt.Errorf("enroll gated key copy: %w", err)
	}
	return nil
}

func (s *sessionService) Lock() {
	s.session.Lock()
}

func (s *sessionService) SignOut(ctx context.Context) error {
	if err := s.session.LockAndPurge(); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	logger.FromContext(ctx).Info().Str("func", "SignOut").Msg("session key purged")
	return nil
}
