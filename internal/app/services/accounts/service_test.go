package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docudrive/document-layer/internal/app/domain/account"
	"github.com/docudrive/document-layer/internal/app/domain/credential"
	"github.com/docudrive/document-layer/internal/app/storage/memory"
	"github.com/docudrive/document-layer/pkg/logger"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := New(store, store, []byte("test-secret"), time.Hour, logger.Discard())
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, " Alice@Example.com ", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.Role != credential.RoleUser {
		t.Fatalf("new accounts must start as user, got %s", u.Role)
	}
	if u.PasswordHash == "correct horse" || u.PasswordHash == "" {
		t.Fatal("password stored without hashing")
	}

	token, logged, err := svc.Login(ctx, "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != u.ID {
		t.Fatalf("login returned wrong user: %+v", logged)
	}

	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != u.ID || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "correct horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, errUnknown := svc.Login(ctx, "nobody@example.com", "whatever")
	_, _, errWrongPw := svc.Login(ctx, "alice@example.com", "wrong password")
	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrongPw, ErrInvalidCredentials) {
		t.Fatalf("login failures leak cause: %v vs %v", errUnknown, errWrongPw)
	}
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "long enough password"); err == nil {
		t.Fatal("empty email accepted")
	}
	if _, err := svc.Register(ctx, "a@b.com", "short"); err == nil {
		t.Fatal("short password accepted")
	}
}

func TestParseTokenRejectsForgery(t *testing.T) {
	svc, _ := newService(t)
	other := New(memory.New(), memory.New(), []byte("other-secret"), time.Hour, logger.Discard())

	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice@example.com", "correct horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, _, err := svc.Login(ctx, "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := other.ParseToken(token); err == nil {
		t.Fatal("token accepted under a different secret")
	}
	if _, err := svc.ParseToken(token + "x"); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func bootstrapSuperadmin(t *testing.T, svc *Service) account.User {
	t.Helper()
	ctx := context.Background()
	if err := svc.EnsureSuperadmin(ctx, "root@example.com", "root password"); err != nil {
		t.Fatalf("EnsureSuperadmin: %v", err)
	}
	_, root, err := svc.Login(ctx, "root@example.com", "root password")
	if err != nil {
		t.Fatalf("superadmin login: %v", err)
	}
	return root
}

func TestEnsureSuperadminIsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	root := bootstrapSuperadmin(t, svc)
	if root.Role != credential.RoleSuperadmin {
		t.Fatalf("role = %s", root.Role)
	}
	if err := svc.EnsureSuperadmin(ctx, "root@example.com", "root password"); err != nil {
		t.Fatalf("second EnsureSuperadmin: %v", err)
	}
	users, err := svc.List(ctx, root)
	if err != nil || len(users) != 1 {
		t.Fatalf("List: %v %d users", err, len(users))
	}
}

func TestEnsureSuperadminPromotesExistingAccount(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, _ := svc.Register(ctx, "root@example.com", "root password")
	if err := svc.EnsureSuperadmin(ctx, "root@example.com", "ignored"); err != nil {
		t.Fatalf("EnsureSuperadmin: %v", err)
	}
	got, _ := svc.Get(ctx, u.ID)
	if got.Role != credential.RoleSuperadmin {
		t.Fatalf("role = %s, want superadmin", got.Role)
	}
}

func TestChangeRoleRules(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	root := bootstrapSuperadmin(t, svc)
	alice, _ := svc.Register(ctx, "alice@example.com", "correct horse")

	// Non-superadmins cannot change roles.
	if _, err := svc.ChangeRole(ctx, alice, alice.ID, credential.RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("user changed a role: %v", err)
	}
	// Superadmins cannot change their own role.
	if _, err := svc.ChangeRole(ctx, root, root.ID, credential.RoleUser); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self role change allowed: %v", err)
	}
	if _, err := svc.ChangeRole(ctx, root, alice.ID, credential.Role("owner")); err == nil {
		t.Fatal("unknown role accepted")
	}

	promoted, err := svc.ChangeRole(ctx, root, alice.ID, credential.RoleAdmin)
	if err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	if promoted.Role != credential.RoleAdmin {
		t.Fatalf("role = %s", promoted.Role)
	}

	// Promotion created a tenant profile whose ID is the user's ID.
	tenant, err := svc.Tenant(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Tenant after promotion: %v", err)
	}
	if tenant.ID != alice.ID {
		t.Fatalf("tenant ID %q, want %q", tenant.ID, alice.ID)
	}

	// Demote and re-promote: the profile must survive and be reused.
	if _, err := svc.ChangeRole(ctx, root, alice.ID, credential.RoleUser); err != nil {
		t.Fatalf("demote: %v", err)
	}
	if _, err := svc.ChangeRole(ctx, root, alice.ID, credential.RoleAdmin); err != nil {
		t.Fatalf("re-promote: %v", err)
	}
	again, err := svc.Tenant(ctx, alice.ID)
	if err != nil || again.ID != tenant.ID {
		t.Fatalf("tenant profile not reused: %v %+v", err, again)
	}
}

func TestDelegationLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	root := bootstrapSuperadmin(t, svc)
	adminUser, _ := svc.Register(ctx, "admin@example.com", "admin password")
	adminUser, _ = svc.ChangeRole(ctx, root, adminUser.ID, credential.RoleAdmin)
	otherAdmin, _ := svc.Register(ctx, "other@example.com", "other password")
	otherAdmin, _ = svc.ChangeRole(ctx, root, otherAdmin.ID, credential.RoleAdmin)
	user, _ := svc.Register(ctx, "user@example.com", "user password")

	tenant, _ := svc.Tenant(ctx, adminUser.ID)

	// An admin delegates to their own tenant only.
	if err := svc.Delegate(ctx, adminUser, user.ID, tenant.ID); err != nil {
		t.Fatalf("Delegate: %v", err)
	}
	otherTenant, _ := svc.Tenant(ctx, otherAdmin.ID)
	if err := svc.Delegate(ctx, adminUser, user.ID, otherTenant.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cross-tenant delegation allowed: %v", err)
	}
	// Only user-role accounts can be delegated.
	if err := svc.Delegate(ctx, root, otherAdmin.ID, tenant.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admin delegated as if a user: %v", err)
	}

	// Delegations appear in the principal and the token.
	p, err := svc.Principal(ctx, user)
	if err != nil {
		t.Fatalf("Principal: %v", err)
	}
	if !p.DelegatedTo(tenant.ID) {
		t.Fatalf("delegation missing from principal: %+v", p)
	}

	token, _, err := svc.Login(ctx, "user@example.com", "user password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, _ := svc.ParseToken(token)
	if len(claims.DelegatedTenants) != 1 || claims.DelegatedTenants[0] != tenant.ID {
		t.Fatalf("claims delegations = %v", claims.DelegatedTenants)
	}

	if err := svc.Undelegate(ctx, adminUser, user.ID, tenant.ID); err != nil {
		t.Fatalf("Undelegate: %v", err)
	}
	p, _ = svc.Principal(ctx, user)
	if p.DelegatedTo(tenant.ID) {
		t.Fatal("delegation survived removal")
	}
}

func TestAdminPrincipalUsesTenantID(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	root := bootstrapSuperadmin(t, svc)
	adminUser, _ := svc.Register(ctx, "admin@example.com", "admin password")
	adminUser, _ = svc.ChangeRole(ctx, root, adminUser.ID, credential.RoleAdmin)

	p, err := svc.Principal(ctx, adminUser)
	if err != nil {
		t.Fatalf("Principal: %v", err)
	}
	tenant, _ := svc.Tenant(ctx, adminUser.ID)
	if p.ID != tenant.ID || p.Role != credential.RoleAdmin {
		t.Fatalf("principal = %+v, want tenant %s", p, tenant.ID)
	}
}

func TestDeleteRules(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	root := bootstrapSuperadmin(t, svc)
	alice, _ := svc.Register(ctx, "alice@example.com", "correct horse")

	if err := svc.Delete(ctx, alice, root.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("user deleted an account: %v", err)
	}
	if err := svc.Delete(ctx, root, root.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self-deletion allowed: %v", err)
	}
	if err := svc.Delete(ctx, root, alice.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestCreateUserRules(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	superadmin := account.User{ID: "root", Role: credential.RoleSuperadmin}

	plain, err := svc.Register(ctx, "plain@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.CreateUser(ctx, plain, "x@example.com", "password123", credential.RoleUser); !errors.Is(err, ErrForbidden) {
		t.Fatalf("user-role creator: err = %v, want ErrForbidden", err)
	}

	admin, err := svc.CreateUser(ctx, superadmin, "boss@example.com", "password123", credential.RoleAdmin)
	if err != nil {
		t.Fatalf("superadmin creates admin: %v", err)
	}
	tenant, err := svc.Tenant(ctx, admin.ID)
	if err != nil {
		t.Fatalf("created admin has no tenant profile: %v", err)
	}
	if tenant.ID != admin.ID {
		t.Fatalf("tenant ID %q must equal admin user ID %q", tenant.ID, admin.ID)
	}

	staff, err := svc.CreateUser(ctx, admin, "staff@example.com", "password123", credential.RoleUser)
	if err != nil {
		t.Fatalf("admin creates user: %v", err)
	}
	if staff.Role != credential.RoleUser {
		t.Fatalf("created role = %s, want user", staff.Role)
	}

	if _, err := svc.CreateUser(ctx, admin, "peer@example.com", "password123", credential.RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admin creating admin: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.CreateUser(ctx, superadmin, "bad@example.com", "short", credential.RoleUser); err == nil {
		t.Fatal("weak password accepted")
	}
}

func TestUpdateSelf(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	updated, err := svc.UpdateSelf(ctx, u.ID, "Alice.New@Example.com", "newpassword9")
	if err != nil {
		t.Fatalf("UpdateSelf: %v", err)
	}
	if updated.Email != "alice.new@example.com" {
		t.Fatalf("email = %q", updated.Email)
	}
	if updated.Role != credential.RoleUser {
		t.Fatalf("role changed by self update: %s", updated.Role)
	}

	if _, _, err := svc.Login(ctx, "alice.new@example.com", "newpassword9"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice.new@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still valid: %v", err)
	}

	if _, err := svc.UpdateSelf(ctx, u.ID, "", "short"); err == nil {
		t.Fatal("weak replacement password accepted")
	}
}

func TestTenantAdministration(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	superadmin := account.User{ID: "root", Role: credential.RoleSuperadmin}
	admin, err := svc.CreateUser(ctx, superadmin, "boss@example.com", "password123", credential.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := svc.ListTenants(ctx, admin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admin listing tenants: err = %v, want ErrForbidden", err)
	}
	list, err := svc.ListTenants(ctx, superadmin)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListTenants: n=%d err=%v", len(list), err)
	}

	if _, err := svc.RenameTenant(ctx, admin, admin.ID, "Mine"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admin renaming tenant: err = %v, want ErrForbidden", err)
	}
	renamed, err := svc.RenameTenant(ctx, superadmin, admin.ID, "Accounting")
	if err != nil || renamed.Name != "Accounting" {
		t.Fatalf("RenameTenant: name=%q err=%v", renamed.Name, err)
	}
	if _, err := svc.RenameTenant(ctx, superadmin, admin.ID, "  "); err == nil {
		t.Fatal("blank name accepted")
	}

	if err := svc.RemoveTenant(ctx, admin, admin.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admin removing tenant: err = %v, want ErrForbidden", err)
	}
	if err := svc.RemoveTenant(ctx, superadmin, admin.ID); err != nil {
		t.Fatalf("RemoveTenant: %v", err)
	}
	if _, err := store.GetTenant(ctx, admin.ID); err == nil {
		t.Fatal("tenant profile survived removal")
	}
}

func TestDelegatedTenantsListing(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	superadmin := account.User{ID: "root", Role: credential.RoleSuperadmin}
	admin, err := svc.CreateUser(ctx, superadmin, "boss@example.com", "password123", credential.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, err := svc.Register(ctx, "worker@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	list, err := svc.DelegatedTenants(ctx, u.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("before delegation: n=%d err=%v", len(list), err)
	}

	if err := svc.Delegate(ctx, superadmin, u.ID, admin.ID); err != nil {
		t.Fatalf("Delegate: %v", err)
	}
	list, err = svc.DelegatedTenants(ctx, u.ID)
	if err != nil || len(list) != 1 || list[0].ID != admin.ID {
		t.Fatalf("after delegation: %+v err=%v", list, err)
	}
}
