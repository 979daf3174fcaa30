package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/docudrive/document-layer/internal/app/domain/account"
	"github.com/docudrive/document-layer/internal/app/domain/credential"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(db); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	store := New(db)
	ctx := context.Background()

	admin, err := store.CreateUser(ctx, account.User{Email: "it-admin@example.com", PasswordHash: "h", Role: credential.RoleAdmin})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	defer store.DeleteUser(ctx, admin.ID)

	tenant, err := store.CreateTenant(ctx, account.Tenant{ID: admin.ID, UserID: admin.ID, Name: "it-tenant"})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	v1, err := store.PutCredential(ctx, credential.Record{
		TenantID:       tenant.ID,
		CredentialType: credential.TypeServiceAccount,
		Ciphertext:     []byte{1, 2, 3},
	})
	if err != nil || v1 != 1 {
		t.Fatalf("first put: v=%d err=%v", v1, err)
	}
	v2, err := store.PutCredential(ctx, credential.Record{
		TenantID:       tenant.ID,
		CredentialType: credential.TypeServiceAccount,
		Ciphertext:     []byte{4, 5, 6},
	})
	if err != nil || v2 != 2 {
		t.Fatalf("second put: v=%d err=%v", v2, err)
	}

	rec, err := store.GetCredential(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("get credential: %v", err)
	}
	if rec.Version != 2 || len(rec.Ciphertext) != 3 || rec.Ciphertext[0] != 4 {
		t.Fatalf("stale credential: %+v", rec)
	}

	v3, err := store.SetCredentialFolder(ctx, tenant.ID, "folder-xyz")
	if err != nil || v3 != 3 {
		t.Fatalf("set folder: v=%d err=%v", v3, err)
	}
	rec, err = store.GetCredential(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("get credential after folder update: %v", err)
	}
	if rec.DriveFolderID != "folder-xyz" || rec.Ciphertext[0] != 4 {
		t.Fatalf("folder update touched ciphertext: %+v", rec)
	}

	existed, err := store.DeleteCredential(ctx, tenant.ID)
	if err != nil || !existed {
		t.Fatalf("delete credential: existed=%v err=%v", existed, err)
	}
	existed, err = store.DeleteCredential(ctx, tenant.ID)
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}
