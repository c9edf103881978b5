package models

import (
	"time"
)

// DirectoryUser is one human's application profile row. The portal owns this
// table; the service only reads rows and rebinds IdentityRef.
//
// Role information is spread across four legacy columns whose encoding is
// inconsistent: a plain token, a JSON-encoded array stored as a string, or a
// comma-separated list. Normalisation lives in the services package.
type DirectoryUser struct {
	ID       uint64 `gorm:"primaryKey" json:"id"`
	Username string `json:"username"`

	// IdentityRef points at the bound identity-provider account. Nil until a
	// password is first provisioned; may go stale if the account is deleted
	// out of band.
	IdentityRef *string `gorm:"column:identity_ref;index" json:"identity_ref,omitempty"`

	Role     string `json:"role"`
	Roles    string `json:"roles"`
	SubRole  string `gorm:"column:sub_role" json:"sub_role"`
	SubRoles string `gorm:"column:sub_roles" json:"sub_roles"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the legacy portal table name.
func (DirectoryUser) TableName() string {
	return "users"
}
