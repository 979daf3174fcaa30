package vault

import (
	"github.com/docudrive/document-layer/internal/app/domain/credential"
)

// Operation is the access class being authorized against a credential slot.
type Operation string

const (
	// OpRead covers fetch for operational use (uploads, downloads).
	OpRead Operation = "read"
	// OpWrite covers store, rotate, and revoke.
	OpWrite Operation = "write"
)

// Authorize applies the vault's access decision table. It is pure: no I/O, no
// side effects, only the principal's own claims are inspected.
//
//	write: superadmin anywhere; admin on their own tenant
//	read:  anything write allows, plus users delegated to the tenant
func Authorize(p credential.Principal, tenantID string, op Operation) error {
	writeAllowed := p.Role == credential.RoleSuperadmin ||
		(p.Role == credential.RoleAdmin && p.ID == tenantID)

	switch op {
	case OpWrite:
		if writeAllowed {
			return nil
		}
	case OpRead:
		if writeAllowed {
			return nil
		}
		if p.Role == credential.RoleUser && p.DelegatedTo(tenantID) {
			return nil
		}
	}
	return ErrNotAuthorized
}
