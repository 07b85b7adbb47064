package models

import "encoding/json"

// AttachmentKind discriminates the variants an attachment entry can take on
// the wire.
type AttachmentKind string

const (
	// AttachmentReference points at a blob stored out-of-band under
	// StorageKey; only encrypted metadata travels with the record.
	AttachmentReference AttachmentKind = "reference"

	// AttachmentInline carries the encrypted content directly in the record.
	AttachmentInline AttachmentKind = "inline"

	// AttachmentOpaque is the fallback for entries whose fields match no
	// known variant. The entry is preserved byte-for-byte and re-uploaded
	// unchanged.
	AttachmentOpaque AttachmentKind = "opaque"
)

// Attachment describes one file attached to an encrypted record. Name and
// content type are themselves encrypted; the server learns only the size and
// the storage key.
type Attachment struct {
	ID            string            `json:"id"`
	Kind          AttachmentKind    `json:"type,omitempty"`
	EncryptedName EncryptedPayload  `json:"encryptedName"`
	EncryptedType EncryptedPayload  `json:"encryptedType"`
	Size          int64             `json:"size"`
	StorageKey    string            `json:"storageKey,omitempty"`
	Inline        *EncryptedPayload `json:"content,omitempty"`
}

// attachmentProbe mirrors the wire fields needed to infer the variant when
// the explicit type tag is absent (older servers never send one).
type attachmentProbe struct {
	Kind       AttachmentKind    `json:"type"`
	StorageKey string            `json:"storageKey"`
	Inline     *EncryptedPayload `json:"content"`
}

// UnmarshalJSON decodes an attachment and resolves its variant. The inference
// order is fixed:
//
//  1. an explicit "type" tag always wins;
//  2. a non-empty "storageKey" makes it a reference;
//  3. an inline "content" payload makes it inline;
//  4. anything else is opaque.
func (a *Attachment) UnmarshalJSON(data []byte) error {
	type plain Attachment
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Attachment(p)
	if a.Kind != "" {
		return nil
	}

	var probe attachmentProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe.StorageKey != "":
		a.Kind = AttachmentReference
	case probe.Inline != nil && !probe.Inline.IsZero():
		a.Kind = AttachmentInline
	default:
		a.Kind = AttachmentOpaque
	}
	return nil
}
