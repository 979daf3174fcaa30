// Package account defines users, tenant profiles, and their delegation links.
package account

import (
	"time"

	"github.com/docudrive/document-layer/internal/app/domain/credential"
)

// User is an authenticated account. PasswordHash is a bcrypt hash and is
// excluded from API responses.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Role         credential.Role `json:"role"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Tenant is the admin-side profile owning a drive credential slot and a set
// of delegated users. Its ID doubles as the vault's tenant identifier.
// The workflow folder IDs cache the Drive folders created by the folder
// structure setup so the UI can navigate without extra Drive calls.
type Tenant struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`

	FolderPending  string `json:"folder_pending_id,omitempty"`
	FolderInReview string `json:"folder_in_review_id,omitempty"`
	FolderApproved string `json:"folder_approved_id,omitempty"`
	FolderRejected string `json:"folder_rejected_id,omitempty"`
	FolderArchived string `json:"folder_archived_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
