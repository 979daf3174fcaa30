package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/docudrive/document-layer/internal/app/domain/account"
	"github.com/docudrive/document-layer/internal/app/domain/credential"
	"github.com/docudrive/document-layer/internal/app/domain/document"
	"github.com/docudrive/document-layer/internal/app/storage"
)

func TestUserLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, account.User{Email: "a@example.com", PasswordHash: "x", Role: credential.RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("create did not populate record: %+v", created)
	}

	if _, err := s.CreateUser(ctx, account.User{Email: "a@example.com", PasswordHash: "y", Role: credential.RoleUser}); err == nil {
		t.Fatal("duplicate email accepted")
	}

	byEmail, err := s.GetUserByEmail(ctx, "a@example.com")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("GetUserByEmail: %v %+v", err, byEmail)
	}

	created.Role = credential.RoleSuperadmin
	updated, err := s.UpdateUser(ctx, created)
	if err != nil || updated.Role != credential.RoleSuperadmin {
		t.Fatalf("UpdateUser: %v %+v", err, updated)
	}

	if err := s.DeleteUser(ctx, created.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetUser(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
	if _, err := s.GetUserByEmail(ctx, "a@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("email index not cleaned: %v", err)
	}
}

func TestTenantAndDelegations(t *testing.T) {
	s := New()
	ctx := context.Background()

	admin, _ := s.CreateUser(ctx, account.User{Email: "admin@example.com", Role: credential.RoleAdmin})
	user, _ := s.CreateUser(ctx, account.User{Email: "user@example.com", Role: credential.RoleUser})

	tenant, err := s.CreateTenant(ctx, account.Tenant{ID: admin.ID, UserID: admin.ID, Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if _, err := s.CreateTenant(ctx, account.Tenant{UserID: admin.ID, Name: "Second"}); err == nil {
		t.Fatal("second tenant profile for one user accepted")
	}

	byUser, err := s.GetTenantByUser(ctx, admin.ID)
	if err != nil || byUser.ID != tenant.ID {
		t.Fatalf("GetTenantByUser: %v %+v", err, byUser)
	}

	if err := s.AddDelegation(ctx, user.ID, tenant.ID); err != nil {
		t.Fatalf("AddDelegation: %v", err)
	}
	if err := s.AddDelegation(ctx, user.ID, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delegation to missing tenant: %v", err)
	}

	delegated, err := s.ListDelegatedTenants(ctx, user.ID)
	if err != nil || len(delegated) != 1 || delegated[0].ID != tenant.ID {
		t.Fatalf("ListDelegatedTenants: %v %+v", err, delegated)
	}

	if err := s.RemoveDelegation(ctx, user.ID, tenant.ID); err != nil {
		t.Fatalf("RemoveDelegation: %v", err)
	}
	if err := s.RemoveDelegation(ctx, user.ID, tenant.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second RemoveDelegation: %v", err)
	}

	// Deleting the tenant drops its credential and any remaining delegations.
	if _, err := s.PutCredential(ctx, credential.Record{TenantID: tenant.ID, Ciphertext: []byte{1}}); err != nil {
		t.Fatalf("PutCredential: %v", err)
	}
	if err := s.DeleteTenant(ctx, tenant.ID); err != nil {
		t.Fatalf("DeleteTenant: %v", err)
	}
	if _, err := s.GetCredential(ctx, tenant.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("credential survived tenant deletion: %v", err)
	}
}

func TestPutCredentialVersioning(t *testing.T) {
	s := New()
	ctx := context.Background()

	v, err := s.PutCredential(ctx, credential.Record{TenantID: "t1", CredentialType: credential.TypeServiceAccount, Ciphertext: []byte{1, 2}})
	if err != nil || v != 1 {
		t.Fatalf("first put: v=%d err=%v", v, err)
	}
	v, err = s.PutCredential(ctx, credential.Record{TenantID: "t1", CredentialType: credential.TypeServiceAccount, Ciphertext: []byte{3, 4}})
	if err != nil || v != 2 {
		t.Fatalf("second put: v=%d err=%v", v, err)
	}

	rec, err := s.GetCredential(ctx, "t1")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if rec.Version != 2 || rec.Ciphertext[0] != 3 {
		t.Fatalf("stale record: %+v", rec)
	}
	if rec.CreatedAt.After(rec.UpdatedAt) {
		t.Fatal("CreatedAt not preserved across replace")
	}

	// Mutating the returned slice must not touch the stored copy.
	rec.Ciphertext[0] = 0xFF
	again, _ := s.GetCredential(ctx, "t1")
	if again.Ciphertext[0] != 3 {
		t.Fatal("stored ciphertext aliased to caller slice")
	}
}

func TestPutCredentialConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()

	const writers = 32
	var wg sync.WaitGroup
	seen := make(chan int64, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.PutCredential(ctx, credential.Record{TenantID: "t1", Ciphertext: []byte{9}})
			if err != nil {
				t.Errorf("PutCredential: %v", err)
				return
			}
			seen <- v
		}()
	}
	wg.Wait()
	close(seen)

	versions := make(map[int64]bool)
	for v := range seen {
		if versions[v] {
			t.Fatalf("duplicate version %d", v)
		}
		versions[v] = true
	}
	if len(versions) != writers {
		t.Fatalf("got %d distinct versions, want %d", len(versions), writers)
	}
}

func TestSetCredentialFolder(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.SetCredentialFolder(ctx, "t1", "f-new"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing record: err = %v, want ErrNotFound", err)
	}

	if _, err := s.PutCredential(ctx, credential.Record{TenantID: "t1", CredentialType: credential.TypeServiceAccount, Ciphertext: []byte{1, 2}, DriveFolderID: "f-old"}); err != nil {
		t.Fatalf("PutCredential: %v", err)
	}

	v, err := s.SetCredentialFolder(ctx, "t1", "f-new")
	if err != nil || v != 2 {
		t.Fatalf("SetCredentialFolder: v=%d err=%v", v, err)
	}

	rec, err := s.GetCredential(ctx, "t1")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if rec.DriveFolderID != "f-new" || rec.Version != 2 {
		t.Fatalf("record after folder update: %+v", rec)
	}
	if rec.Ciphertext[0] != 1 {
		t.Fatal("ciphertext changed by folder update")
	}
}

func TestDeleteCredentialIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.PutCredential(ctx, credential.Record{TenantID: "t1", Ciphertext: []byte{1}}); err != nil {
		t.Fatalf("PutCredential: %v", err)
	}
	existed, err := s.DeleteCredential(ctx, "t1")
	if err != nil || !existed {
		t.Fatalf("first delete: existed=%v err=%v", existed, err)
	}
	existed, err = s.DeleteCredential(ctx, "t1")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestFilesAndComments(t *testing.T) {
	s := New()
	ctx := context.Background()

	f, err := s.CreateFile(ctx, document.File{Filename: "report.pdf", TenantID: "t1", UploadedByUserID: "u1", DriveFileID: "drv-1"})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	other, _ := s.CreateFile(ctx, document.File{Filename: "other.pdf", TenantID: "t2"})

	listed, err := s.ListFiles(ctx, "t1")
	if err != nil || len(listed) != 1 || listed[0].ID != f.ID {
		t.Fatalf("ListFiles scoped: %v %+v", err, listed)
	}
	all, _ := s.ListFiles(ctx, "")
	if len(all) != 2 {
		t.Fatalf("ListFiles unscoped: %+v", all)
	}

	c, err := s.CreateComment(ctx, document.Comment{FileID: f.ID, UserID: "u1", Text: "looks good"})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if _, err := s.CreateComment(ctx, document.Comment{FileID: "missing", UserID: "u1"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("comment on missing file: %v", err)
	}

	if _, err := s.AppendCommentEvent(ctx, document.CommentEvent{CommentID: c.ID, Action: document.CommentCreated, NewText: c.Text, ActorUserID: "u1"}); err != nil {
		t.Fatalf("AppendCommentEvent: %v", err)
	}
	events, err := s.ListCommentEvents(ctx, c.ID)
	if err != nil || len(events) != 1 || events[0].Action != document.CommentCreated {
		t.Fatalf("ListCommentEvents: %v %+v", err, events)
	}

	// Deleting a file cascades to its comments and their history.
	if err := s.DeleteFile(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := s.GetComment(ctx, c.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("comment survived file deletion: %v", err)
	}
	if _, err := s.GetFile(ctx, other.ID); err != nil {
		t.Fatalf("unrelated file deleted: %v", err)
	}
}
