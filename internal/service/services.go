package service

import (
	"time"

	"github.com/avelesk/notevault/internal/adapter"
	"github.com/avelesk/notevault/internal/crypto"
	"github.com/avelesk/notevault/internal/secret"
	"github.com/avelesk/notevault/internal/store"
)

// Services bundles the client service layer for injection into the app.
type Services struct {
	Session   SessionService
	Records   RecordService
	Journal   JournalService
	VaultSync VaultSyncEngine
	SyncJob   SyncJob
}

// NewServices wires the full service graph from its collaborators.
// opTimeout bounds each background reconciliation pass, retries included; a
// non-positive value falls back to the sync job's default.
func NewServices(keys crypto.KeyService, session *secret.Vault, storages *store.ClientStorages, server adapter.ServerAdapter, opTimeout time.Duration) *Services {
	journal := NewJournalService(storages.Journal, storages.Records, server)
	vaultSync := NewVaultSyncEngine(keys, session, storages.Vault, server)

	return &Services{
		Session:   NewSessionService(keys, session, server),
		Records:   NewRecordService(keys, session, storages.Records, storages.Journal),
		Journal:   journal,
		VaultSync: vaultSync,
		SyncJob:   NewSyncJob(journal, vaultSync, opTimeout),
	}
}
