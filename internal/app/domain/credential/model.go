// Package credential defines the tenant credential vault's data model: the
// encrypted per-tenant record, the decrypted service-account document, and
// the principal descriptor attached to every request.
package credential

import "time"

// TypeServiceAccount is the only supported credential discriminator. The
// legacy interactive flow was removed; its discriminator is recognised solely
// to produce a targeted rejection.
const (
	TypeServiceAccount = "service_account"
	TypeAuthorizedUser = "authorized_user"
)

// Record is one tenant's encrypted credential set as persisted. Ciphertext is
// opaque outside the vault and must never appear in logs or API responses.
type Record struct {
	TenantID       string    `json:"tenant_id"`
	CredentialType string    `json:"credential_type"`
	Ciphertext     []byte    `json:"-"`
	DriveFolderID  string    `json:"drive_folder_id"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Document is a decrypted service-account credential document. Field names
// follow the key file issued by the external provider.
type Document struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

// Role is the privilege level of an authenticated principal.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// Principal is an authenticated actor. DelegatedTenantIDs lists the tenants a
// user-role principal has been associated with; it is empty for admins, whose
// own ID names their tenant.
type Principal struct {
	ID                 string
	Role               Role
	DelegatedTenantIDs []string
}

// DelegatedTo reports whether the principal carries a delegation for the
// given tenant.
func (p Principal) DelegatedTo(tenantID string) bool {
	for _, id := range p.DelegatedTenantIDs {
		if id == tenantID {
			return true
		}
	}
	return false
}
