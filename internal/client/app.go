package client

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/avelesk/notevault/internal/adapter"
	"github.com/avelesk/notevault/internal/config"
	"github.com/avelesk/notevault/internal/crypto"
	"github.com/avelesk/notevault/internal/fetchcache"
	"github.com/avelesk/notevault/internal/logger"
	"github.com/avelesk/notevault/internal/secret"
	"github.com/avelesk/notevault/internal/service"
	"github.com/avelesk/notevault/internal/store"
)

// saltFile is the name of the per-account salt file inside the vault
// directory. The salt is not a secret; it only needs to survive.
const saltFile = "account-salt"

// App is the assembled client runtime.
type App struct {
	cfg      *config.StructuredConfig
	log      *logger.Logger
	session  *secret.Vault
	services *service.Services
	in       *bufio.Reader
}

// NewApp wires the full client from configuration. The access gate for the
// persisted key copy is a terminal confirmation prompt; platform builds can
// swap in a biometric gate through [secret.New].
func NewApp(cfg *config.StructuredConfig, log *logger.Logger) (*App, error) {
	storages, err := store.NewClientStorages(cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	ring, err := secret.OpenKeyring(cfg.Secret.KeyringService)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	in := bufio.NewReader(os.Stdin)
	session := secret.New(terminalGate(in), ring)

	serverAdapter := adapter.NewHTTPServerAdapter(adapter.HTTPClientConfig{
		BaseURL:  cfg.Server.Address,
		Timeout:  cfg.Server.RequestTimeout,
		CacheTTL: cfg.Cache.TTL,
	}, fetchcache.New())
	if token := os.Getenv("NOTEVAULT_TOKEN"); token != "" {
		serverAdapter.SetToken(token)
	}

	services := service.NewServices(crypto.NewKeyService(), session, storages, serverAdapter, cfg.Server.TotalTimeout)

	return &App{cfg: cfg, log: log, session: session, services: services, in: in}, nil
}

// Run implements [Client]: unlock (or set up) the session, reconcile once,
// then keep the background sync job running until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(a.log.WithContext(context.Background()), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.openSession(ctx); err != nil {
		return err
	}
	defer a.session.Lock()

	// The first reconciliation shares the background passes' total cap so
	// an unreachable server cannot stall startup past it.
	opCtx, done := context.WithTimeout(ctx, a.cfg.Server.TotalTimeout)
	if err := a.services.Journal.ReplayAll(opCtx); err != nil {
		a.log.Warn().Err(err).Msg("initial journal replay incomplete; will retry in background")
	}
	if _, err := a.services.VaultSync.PullIfStale(opCtx); err != nil {
		a.log.Warn().Err(err).Msg("initial vault refresh failed; working from local copy")
	}
	done()

	a.services.SyncJob.Start(ctx, a.cfg.Workers.SyncInterval)
	defer a.services.SyncJob.Stop()

	a.log.Info().Msg("notevault client running; press Ctrl+C to exit")
	<-ctx.Done()
	return nil
}

// openSession establishes the session key: first run sets the account up,
// later runs unlock through the gate when enrolled, falling back to the
// master password.
func (a *App) openSession(ctx context.Context) error {
	salt, err := a.loadSalt()
	if errors.Is(err, os.ErrNotExist) {
		return a.setup(ctx)
	}
	if err != nil {
		return err
	}

	if enrolled, err := a.session.Enrolled(); err == nil && enrolled {
		if err = a.services.Session.UnlockWithGate(ctx, "unlock notevault"); err == nil {
			return nil
		}
		a.log.Warn().Err(err).Msg("gated unlock failed; falling back to password")
	}

	password, err := a.prompt("Master password: ")
	if err != nil {
		return err
	}
	if err = a.services.Session.UnlockWithPassword(ctx, password, salt); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	return nil
}

func (a *App) setup(ctx context.Context) error {
	password, err := a.prompt("No account salt found. Choose a master password: ")
	if err != nil {
		return err
	}

	salt, err := a.services.Session.SetupAccount(ctx, password)
	if err != nil {
		return fmt.Errorf("set up account: %w", err)
	}
	if err = a.saveSalt(salt); err != nil {
		return err
	}

	a.log.Info().Msg("account initialized")
	return nil
}

func (a *App) saltPath() string {
	return filepath.Join(a.cfg.Storage.VaultDir, saltFile)
}

func (a *App) loadSalt() ([]byte, error) {
	raw, err := os.ReadFile(a.saltPath())
	if err != nil {
		return nil, err
	}
	salt, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode salt file: %w", err)
	}
	return salt, nil
}

func (a *App) saveSalt(salt []byte) error {
	encoded := base64.StdEncoding.EncodeToString(salt) + "\n"
	if err := os.WriteFile(a.saltPath(), []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("persist salt file: %w", err)
	}
	return nil
}

func (a *App) prompt(msg string) (string, error) {
	fmt.Print(msg)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return "", errors.New("empty input")
	}
	return answer, nil
}

// terminalGate confirms local presence with a y/N prompt on the terminal.
func terminalGate(in *bufio.Reader) secret.AccessGate {
	return secret.AccessGateFunc(func(ctx context.Context, reason string) error {
		fmt.Printf("%s — confirm? [y/N]: ", reason)
		line, err := in.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read confirmation: %w", err)
		}
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			return errors.New("confirmation refused")
		}
		return nil
	})
}
