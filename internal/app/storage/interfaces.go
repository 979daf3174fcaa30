// Package storage declares the persistence interfaces consumed by the
// application services. Implementations live in the memory and postgres
// subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/docudrive/document-layer/internal/app/domain/account"
	"github.com/docudrive/document-layer/internal/app/domain/credential"
	"github.com/docudrive/document-layer/internal/app/domain/document"
)

// ErrNotFound is returned by every Get-style operation when no record
// matches. Both backends return it so services never depend on driver
// errors.
var ErrNotFound = errors.New("record not found")

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u account.User) (account.User, error)
	UpdateUser(ctx context.Context, u account.User) (account.User, error)
	GetUser(ctx context.Context, id string) (account.User, error)
	GetUserByEmail(ctx context.Context, email string) (account.User, error)
	ListUsers(ctx context.Context) ([]account.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// TenantStore persists admin tenant profiles and user delegations.
type TenantStore interface {
	CreateTenant(ctx context.Context, t account.Tenant) (account.Tenant, error)
	UpdateTenant(ctx context.Context, t account.Tenant) (account.Tenant, error)
	GetTenant(ctx context.Context, id string) (account.Tenant, error)
	GetTenantByUser(ctx context.Context, userID string) (account.Tenant, error)
	ListTenants(ctx context.Context) ([]account.Tenant, error)
	DeleteTenant(ctx context.Context, id string) error

	AddDelegation(ctx context.Context, userID, tenantID string) error
	RemoveDelegation(ctx context.Context, userID, tenantID string) error
	ListDelegatedTenants(ctx context.Context, userID string) ([]account.Tenant, error)
}

// CredentialStore persists at most one encrypted credential record per
// tenant. PutCredential is an atomic upsert: it creates version 1 or replaces
// the existing record with version+1, serialized per tenant so concurrent
// writers can never skip or duplicate a version.
type CredentialStore interface {
	PutCredential(ctx context.Context, rec credential.Record) (version int64, err error)
	GetCredential(ctx context.Context, tenantID string) (credential.Record, error)
	// SetCredentialFolder replaces only the drive folder reference, leaving
	// the ciphertext untouched. The version increments atomically like
	// PutCredential; a missing record returns ErrNotFound.
	SetCredentialFolder(ctx context.Context, tenantID, driveFolderID string) (version int64, err error)
	// DeleteCredential reports whether a record existed; deleting an absent
	// record is not an error.
	DeleteCredential(ctx context.Context, tenantID string) (bool, error)
}

// FileStore persists file metadata.
type FileStore interface {
	CreateFile(ctx context.Context, f document.File) (document.File, error)
	GetFile(ctx context.Context, id string) (document.File, error)
	ListFiles(ctx context.Context, tenantID string) ([]document.File, error)
	DeleteFile(ctx context.Context, id string) error
}

// CommentStore persists comments and their audit history.
type CommentStore interface {
	CreateComment(ctx context.Context, c document.Comment) (document.Comment, error)
	UpdateComment(ctx context.Context, c document.Comment) (document.Comment, error)
	GetComment(ctx context.Context, id string) (document.Comment, error)
	ListFileComments(ctx context.Context, fileID string) ([]document.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	AppendCommentEvent(ctx context.Context, ev document.CommentEvent) (document.CommentEvent, error)
	ListCommentEvents(ctx context.Context, commentID string) ([]document.CommentEvent, error)
}
