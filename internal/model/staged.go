package model

import "time"

// StagedFile describes a molecule file copied into the backing store.
// The staged name is `{millis}_{originalName}`; the timestamp prefix is both
// the uniqueness mechanism and the creation record read back at sweep time,
// so there is no separate metadata store. Do not treat the name as free-form.
type StagedFile struct {
	Name      string    `json:"name"`
	Origin    string    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
}

// Credential authorizes resolution of one tenant's private files.
// Replaced wholesale on re-registration, never partially updated.
type Credential struct {
	TenantID string
	Token    string
}
