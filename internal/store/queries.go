package store

const (
	saveRecord = `
		INSERT INTO records (
			id,
			payload,
			attachments,
			created_at,
			synced_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			payload     = excluded.payload,
			attachments = excluded.attachments,
			created_at  = excluded.created_at,
			synced_at   = excluded.synced_at;`

	getRecord = `
		SELECT
			id,
			payload,
			attachments,
			created_at,
			synced_at
		FROM records
		WHERE id = ?;`

	listRecords = `
		SELECT
			id,
			payload,
			attachments,
			created_at,
			synced_at
		FROM records
		ORDER BY created_at DESC;`

	deleteRecord = `
		DELETE FROM records
		WHERE id = ?;`

	deleteAllRecords = `DELETE FROM records;`

	markRecordSynced = `
		UPDATE records
		SET synced_at = ?
		WHERE id = ?;`

	appendOperation = `
		INSERT INTO journal (
			op_id,
			kind,
			target_id,
			payload,
			created_at
		) VALUES (?, ?, ?, ?, ?);`

	listPendingOperations = `
		SELECT
			op_id,
			kind,
			target_id,
			payload,
			created_at
		FROM journal
		ORDER BY seq ASC;`

	removeOperation = `
		DELETE FROM journal
		WHERE op_id = ?;`
)
