package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelesk/notevault/internal/crypto"
	"github.com/avelesk/notevault/internal/secret"
	"github.com/avelesk/notevault/internal/store"
	"github.com/avelesk/notevault/models"
)

func newRecordFixture(t *testing.T) (RecordService, *memRecords, *memJournal, []byte) {
	t.Helper()

	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}

	records := newMemRecords()
	journal := newMemJournal()
	svc := NewRecordService(crypto.NewKeyService(), unlockedSession(key), records, journal)
	return svc, records, journal, key
}

func TestRecordService_CreatePersistsCiphertextAndQueues(t *testing.T) {
	svc, records, journal, key := newRecordFixture(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, []byte("card 4111 pin 0000"))
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	stored, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(stored.Primary.Ciphertext), "4111")
	assert.False(t, stored.Synced())

	ops, err := journal.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OpCreate, ops[0].Kind)
	assert.Equal(t, rec.ID, ops[0].TargetID)
	require.NotNil(t, ops[0].Payload)

	plaintext, err := crypto.NewKeyService().Decrypt(*ops[0].Payload, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("card 4111 pin 0000"), plaintext)
}

func TestRecordService_CreateRejectsEmptyPlaintext(t *testing.T) {
	svc, _, _, _ := newRecordFixture(t)

	_, err := svc.Create(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyPlaintext)
}

func TestRecordService_CreateLockedSession(t *testing.T) {
	records := newMemRecords()
	journal := newMemJournal()
	locked := unlockedSession([]byte("irrelevant"))
	locked.Lock()
	svc := NewRecordService(crypto.NewKeyService(), locked, records, journal)

	_, err := svc.Create(context.Background(), []byte("note"))
	require.ErrorIs(t, err, secret.ErrLocked)

	// Nothing half-written.
	ops, _ := journal.ListPending(context.Background())
	assert.Empty(t, ops)
}

func TestRecordService_UpdateReplacesPayloadAndQueues(t *testing.T) {
	svc, records, journal, _ := newRecordFixture(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, []byte("v1"))
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, rec.ID, []byte("v2")))

	view, err := svc.Read(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), view.Plaintext)

	stored, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, stored.Synced())

	ops, err := journal.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, models.OpCreate, ops[0].Kind)
	assert.Equal(t, models.OpUpdate, ops[1].Kind)
}

func TestRecordService_UpdateMissingRecord(t *testing.T) {
	svc, _, _, _ := newRecordFixture(t)

	err := svc.Update(context.Background(), "no-such-id", []byte("v2"))
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestRecordService_DeleteCompactsUnsyncedCreate(t *testing.T) {
	svc, records, journal, _ := newRecordFixture(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, []byte("ephemeral"))
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, rec.ID, []byte("still ephemeral")))

	// The record never reached the server, so deleting it must leave no
	// trace in the journal: no create, no update, and no delete either.
	require.NoError(t, svc.Delete(ctx, rec.ID))

	ops, err := journal.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, ops)

	_, err = records.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestRecordService_DeleteSyncedRecordQueuesDelete(t *testing.T) {
	svc, records, journal, _ := newRecordFixture(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, []byte("synced content"))
	require.NoError(t, err)

	// Simulate a completed drain: journal empty, record acknowledged.
	ops, _ := journal.ListPending(ctx)
	for _, op := range ops {
		require.NoError(t, journal.Remove(ctx, op.OpID))
	}
	require.NoError(t, records.MarkSynced(ctx, rec.ID, models.NowMillis().Time))

	require.NoError(t, svc.Delete(ctx, rec.ID))

	ops, err = journal.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OpDelete, ops[0].Kind)
	assert.Equal(t, rec.ID, ops[0].TargetID)
	assert.Nil(t, ops[0].Payload)
}

func TestRecordService_ReadAllNewestFirst(t *testing.T) {
	svc, _, _, _ := newRecordFixture(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, []byte("older"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, []byte("newer"))
	require.NoError(t, err)

	views, err := svc.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID)
	assert.Equal(t, first.ID, views[1].ID)
	assert.Equal(t, []byte("newer"), views[0].Plaintext)
}

func TestRecordService_ReadWithWrongKey(t *testing.T) {
	svc, records, _, _ := newRecordFixture(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, []byte("secret"))
	require.NoError(t, err)

	wrongKey := make([]byte, crypto.KeySize)
	wrong := NewRecordService(crypto.NewKeyService(), unlockedSession(wrongKey), records, newMemJournal())

	_, err = wrong.Read(ctx, rec.ID)
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}

func TestRecordService_DeleteKeepsRowWhenQueueFails(t *testing.T) {
	svc, records, journal, _ := newRecordFixture(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, []byte("synced content"))
	require.NoError(t, err)

	ops, _ := journal.ListPending(ctx)
	for _, op := range ops {
		require.NoError(t, journal.Remove(ctx, op.OpID))
	}
	require.NoError(t, records.MarkSynced(ctx, rec.ID, models.NowMillis().Time))

	// If the delete cannot be queued the local row must survive too;
	// removing it without a queued server delete would let the record
	// resurrect on the next resync.
	journal.failAppend = errors.New("disk full")
	err = svc.Delete(ctx, rec.ID)
	require.ErrorContains(t, err, "disk full")

	_, err = records.Get(ctx, rec.ID)
	assert.NoError(t, err)

	journal.failAppend = nil
	require.NoError(t, svc.Delete(ctx, rec.ID))
	_, err = records.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}
