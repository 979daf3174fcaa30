// Package vault owns encryption, validation, access control, and storage of
// per-tenant external drive credentials. All other components go through the
// Service facade; nothing else reads or writes credential records.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/docudrive/document-layer/internal/app/domain/credential"
	"github.com/docudrive/document-layer/internal/app/metrics"
	"github.com/docudrive/document-layer/internal/app/storage"
	"github.com/docudrive/document-layer/pkg/logger"
)

// Service is the credential vault facade. Every operation authorizes first,
// then composes the validator, cipher, and record store.
type Service struct {
	store  storage.CredentialStore
	cipher *Cipher
	log    *logger.Logger
}

// New constructs the vault around a record store and a sealed cipher box.
func New(store storage.CredentialStore, cipher *Cipher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("vault")
	}
	return &Service{store: store, cipher: cipher, log: log}
}

// Status describes a tenant's credential slot without exposing key material.
type Status struct {
	TenantID       string `json:"tenant_id"`
	HasCredentials bool   `json:"has_credentials"`
	DriveFolderID  string `json:"drive_folder_id,omitempty"`
	ClientEmail    string `json:"client_email,omitempty"`
	Version        int64  `json:"version,omitempty"`
}

// Store validates, seals, and persists a credential document for the tenant,
// replacing any previous version. Returns the new version number. Nothing is
// persisted when authorization or validation fails.
func (s *Service) Store(ctx context.Context, p credential.Principal, tenantID string, doc map[string]any, driveFolderID string) (version int64, err error) {
	defer func() { metrics.RecordVaultOperation("store", err) }()

	if err := Authorize(p, tenantID, OpWrite); err != nil {
		return 0, err
	}

	validated, err := ValidateDocument(doc)
	if err != nil {
		return 0, err
	}

	plaintext, err := json.Marshal(validated)
	if err != nil {
		return 0, fmt.Errorf("serialize credential document: %w", err)
	}
	sealed, err := s.cipher.Seal(plaintext)
	if err != nil {
		return 0, fmt.Errorf("seal credential document: %w", err)
	}

	version, err = s.store.PutCredential(ctx, credential.Record{
		TenantID:       tenantID,
		CredentialType: credential.TypeServiceAccount,
		Ciphertext:     sealed,
		DriveFolderID:  driveFolderID,
	})
	if err != nil {
		return 0, fmt.Errorf("persist credential: %w", err)
	}

	s.log.WithField("tenant_id", tenantID).
		WithField("version", version).
		WithField("client_email", validated.ClientEmail).
		Info("tenant credential stored")
	return version, nil
}

// Fetch returns the decrypted credential document and drive folder reference
// for operational use (uploads, downloads, folder listing).
func (s *Service) Fetch(ctx context.Context, p credential.Principal, tenantID string) (_ credential.Document, _ string, err error) {
	defer func() { metrics.RecordVaultOperation("fetch", err) }()

	if err := Authorize(p, tenantID, OpRead); err != nil {
		return credential.Document{}, "", err
	}

	rec, err := s.store.GetCredential(ctx, tenantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return credential.Document{}, "", ErrCredentialNotFound
		}
		return credential.Document{}, "", fmt.Errorf("load credential: %w", err)
	}

	plaintext, err := s.cipher.Open(rec.Ciphertext)
	if err != nil {
		// Wrong key or corrupt record; not recoverable by retry.
		s.log.WithField("tenant_id", tenantID).
			WithField("version", rec.Version).
			WithError(err).
			Error("credential decryption failed")
		return credential.Document{}, "", ErrDecryptFailed
	}

	var doc credential.Document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return credential.Document{}, "", fmt.Errorf("deserialize credential document: %w", err)
	}
	return doc, rec.DriveFolderID, nil
}

// Rotate replaces the tenant's credential like Store but additionally reports
// the superseded version so callers can audit-log the handover. Rotating an
// empty slot creates version 1 with oldVersion 0. Versions are gapless, so
// the superseded version is derived from the version the upsert assigned
// rather than read separately.
func (s *Service) Rotate(ctx context.Context, p credential.Principal, tenantID string, doc map[string]any, driveFolderID string) (oldVersion, newVersion int64, err error) {
	defer func() { metrics.RecordVaultOperation("rotate", err) }()

	if err := Authorize(p, tenantID, OpWrite); err != nil {
		return 0, 0, err
	}

	validated, err := ValidateDocument(doc)
	if err != nil {
		return 0, 0, err
	}

	plaintext, err := json.Marshal(validated)
	if err != nil {
		return 0, 0, fmt.Errorf("serialize credential document: %w", err)
	}
	sealed, err := s.cipher.Seal(plaintext)
	if err != nil {
		return 0, 0, fmt.Errorf("seal credential document: %w", err)
	}

	newVersion, err = s.store.PutCredential(ctx, credential.Record{
		TenantID:       tenantID,
		CredentialType: credential.TypeServiceAccount,
		Ciphertext:     sealed,
		DriveFolderID:  driveFolderID,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("persist credential: %w", err)
	}
	oldVersion = newVersion - 1

	s.log.WithField("tenant_id", tenantID).
		WithField("old_version", oldVersion).
		WithField("new_version", newVersion).
		WithField("client_email", validated.ClientEmail).
		Info("tenant credential rotated")
	return oldVersion, newVersion, nil
}

// UpdateFolder changes only the drive folder reference, keeping the sealed
// credential document as is. The version bumps so audit trails record the
// change.
func (s *Service) UpdateFolder(ctx context.Context, p credential.Principal, tenantID, driveFolderID string) (version int64, err error) {
	defer func() { metrics.RecordVaultOperation("update_folder", err) }()

	if err := Authorize(p, tenantID, OpWrite); err != nil {
		return 0, err
	}

	version, err = s.store.SetCredentialFolder(ctx, tenantID, driveFolderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrCredentialNotFound
		}
		return 0, fmt.Errorf("update credential folder: %w", err)
	}

	s.log.WithField("tenant_id", tenantID).
		WithField("drive_folder_id", driveFolderID).
		WithField("version", version).
		Info("tenant drive folder updated")
	return version, nil
}

// Revoke hard-deletes the tenant's credential record. It is idempotent and
// reports whether a record existed.
func (s *Service) Revoke(ctx context.Context, p credential.Principal, tenantID string) (existed bool, err error) {
	defer func() { metrics.RecordVaultOperation("revoke", err) }()

	if err := Authorize(p, tenantID, OpWrite); err != nil {
		return false, err
	}

	existed, err = s.store.DeleteCredential(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("delete credential: %w", err)
	}
	if existed {
		s.log.WithField("tenant_id", tenantID).Info("tenant credential revoked")
	}
	return existed, nil
}

// Describe reports the slot's status without decrypting anything beyond the
// client email shown in the settings UI. A decryption failure downgrades to
// has-credentials with no email rather than failing the status call.
func (s *Service) Describe(ctx context.Context, p credential.Principal, tenantID string) (Status, error) {
	if err := Authorize(p, tenantID, OpRead); err != nil {
		return Status{}, err
	}

	rec, err := s.store.GetCredential(ctx, tenantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Status{TenantID: tenantID}, nil
		}
		return Status{}, fmt.Errorf("load credential: %w", err)
	}

	status := Status{
		TenantID:       tenantID,
		HasCredentials: true,
		DriveFolderID:  rec.DriveFolderID,
		Version:        rec.Version,
	}
	if plaintext, err := s.cipher.Open(rec.Ciphertext); err == nil {
		var doc credential.Document
		if json.Unmarshal(plaintext, &doc) == nil {
			status.ClientEmail = doc.ClientEmail
		}
	} else {
		s.log.WithField("tenant_id", tenantID).WithError(err).Error("credential decryption failed")
	}
	return status, nil
}
