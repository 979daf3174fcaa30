package vault

import (
	"errors"
	"testing"

	"github.com/docudrive/document-layer/internal/app/domain/credential"
)

func TestAuthorizeDecisionTable(t *testing.T) {
	const tenant = "admin-a"

	superadmin := credential.Principal{ID: "root", Role: credential.RoleSuperadmin}
	owner := credential.Principal{ID: tenant, Role: credential.RoleAdmin}
	otherAdmin := credential.Principal{ID: "admin-b", Role: credential.RoleAdmin}
	delegated := credential.Principal{ID: "user-1", Role: credential.RoleUser, DelegatedTenantIDs: []string{tenant}}
	stranger := credential.Principal{ID: "user-2", Role: credential.RoleUser, DelegatedTenantIDs: []string{"admin-b"}}

	cases := []struct {
		name      string
		principal credential.Principal
		op        Operation
		allowed   bool
	}{
		{"superadmin write", superadmin, OpWrite, true},
		{"superadmin read", superadmin, OpRead, true},
		{"owner admin write", owner, OpWrite, true},
		{"owner admin read", owner, OpRead, true},
		{"other admin write", otherAdmin, OpWrite, false},
		{"other admin read", otherAdmin, OpRead, false},
		{"delegated user read", delegated, OpRead, true},
		{"delegated user write", delegated, OpWrite, false},
		{"undelegated user read", stranger, OpRead, false},
		{"undelegated user write", stranger, OpWrite, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.principal, tenant, tc.op)
			if tc.allowed && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tc.allowed && !errors.Is(err, ErrNotAuthorized) {
				t.Fatalf("expected ErrNotAuthorized, got %v", err)
			}
		})
	}
}

func TestAuthorizeUnknownRoleDenied(t *testing.T) {
	p := credential.Principal{ID: "x", Role: credential.Role("operator")}
	if err := Authorize(p, "x", OpWrite); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := Authorize(p, "x", OpRead); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestAuthorizeUserIDNeverNamesTenant(t *testing.T) {
	// A user whose ID happens to equal a tenant ID gains nothing from it;
	// only an explicit delegation grants read.
	p := credential.Principal{ID: "admin-a", Role: credential.RoleUser}
	if err := Authorize(p, "admin-a", OpRead); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}
