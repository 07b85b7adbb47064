package models

// RecordItem is the wire representation of one vault record in the list and
// sync endpoints.
type RecordItem struct {
	ID            string           `json:"id"`
	EncryptedText EncryptedPayload `json:"encryptedText"`
	Files         []Attachment     `json:"files,omitempty"`
	CreatedAt     UnixMillis       `json:"createdAt"`
}

// RecordListResponse is returned by the record list endpoint.
type RecordListResponse struct {
	Items []RecordItem `json:"items"`
}

// RecordUploadRequest creates or replaces one record on the server.
type RecordUploadRequest struct {
	Item RecordItem `json:"item"`
}

// KeyCheckResponse carries the server-issued key verification vector: a
// fixed plaintext encrypted at account setup with the account key. A client
// that can decrypt it back to the known plaintext holds the right key.
type KeyCheckResponse struct {
	Check EncryptedPayload `json:"check"`
}

// VaultUploadResponse is returned by a successful vault upload.
type VaultUploadResponse struct {
	Version   int64      `json:"version"`
	UpdatedAt UnixMillis `json:"updatedAt"`
}

// ToRecord converts a wire item into the local persistence model.
func (it RecordItem) ToRecord() EncryptedRecord {
	return EncryptedRecord{
		ID:          it.ID,
		Primary:     it.EncryptedText,
		Attachments: it.Files,
		CreatedAt:   it.CreatedAt.Time,
	}
}

// ItemFromRecord converts a local record into its wire representation.
func ItemFromRecord(r EncryptedRecord) RecordItem {
	return RecordItem{
		ID:            r.ID,
		EncryptedText: r.Primary,
		Files:         r.Attachments,
		CreatedAt:     MillisFromTime(r.CreatedAt),
	}
}
