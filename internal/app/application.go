// Package app wires the document layer's services over their stores.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/docudrive/document-layer/internal/app/services/accounts"
	filessvc "github.com/docudrive/document-layer/internal/app/services/files"
	"github.com/docudrive/document-layer/internal/app/storage"
	"github.com/docudrive/document-layer/internal/app/storage/memory"
	"github.com/docudrive/document-layer/internal/app/vault"
	"github.com/docudrive/document-layer/internal/drive"
	"github.com/docudrive/document-layer/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users       storage.UserStore
	Tenants     storage.TenantStore
	Credentials storage.CredentialStore
	Files       storage.FileStore
	Comments    storage.CommentStore
}

// Config carries the application-level settings the services need.
type Config struct {
	// MasterKey is the 32-byte credential encryption key.
	MasterKey []byte
	// JWTSecret signs session tokens.
	JWTSecret []byte
	// JWTTTL bounds session lifetime. Zero falls back to 24 hours.
	JWTTTL time.Duration
	// SuperadminEmail and SuperadminPassword bootstrap the first privileged
	// account. Both empty disables the bootstrap.
	SuperadminEmail    string
	SuperadminPassword string
	// Connector overrides the drive provider. Nil selects the real one.
	Connector drive.Connector
}

// Application ties domain services together.
type Application struct {
	log *logger.Logger

	Accounts *accounts.Service
	Vault    *vault.Service
	Files    *filessvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(ctx context.Context, stores Stores, cfg Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Tenants == nil {
		stores.Tenants = mem
	}
	if stores.Credentials == nil {
		stores.Credentials = mem
	}
	if stores.Files == nil {
		stores.Files = mem
	}
	if stores.Comments == nil {
		stores.Comments = mem
	}

	cipher, err := vault.NewCipher(cfg.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("configure cipher: %w", err)
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("jwt secret is required")
	}

	connector := cfg.Connector
	if connector == nil {
		connector = drive.GoogleConnector{}
	}

	vaultService := vault.New(stores.Credentials, cipher, log.WithField("component", "vault"))
	accountsService := accounts.New(stores.Users, stores.Tenants, cfg.JWTSecret, cfg.JWTTTL, log.WithField("component", "accounts"))
	filesService := filessvc.New(stores.Files, stores.Comments, stores.Tenants, vaultService, connector, log.WithField("component", "files"))

	if err := accountsService.EnsureSuperadmin(ctx, cfg.SuperadminEmail, cfg.SuperadminPassword); err != nil {
		return nil, fmt.Errorf("bootstrap superadmin: %w", err)
	}

	return &Application{
		log:      log,
		Accounts: accountsService,
		Vault:    vaultService,
		Files:    filesService,
	}, nil
}
