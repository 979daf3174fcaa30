// Package accounts manages user registration, authentication, roles, and
// user-to-tenant delegations.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/docudrive/document-layer/internal/app/domain/account"
	"github.com/docudrive/document-layer/internal/app/domain/credential"
	"github.com/docudrive/document-layer/internal/app/storage"
	"github.com/docudrive/document-layer/pkg/logger"
)

// ErrInvalidCredentials is returned on any login failure. Unknown email and
// wrong password are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrForbidden is returned when the acting principal lacks the privilege for
// an account-management operation.
var ErrForbidden = errors.New("operation not permitted")

// Claims is the JWT payload issued at login.
type Claims struct {
	Role             string   `json:"role"`
	DelegatedTenants []string `json:"delegated_tenants,omitempty"`
	jwt.RegisteredClaims
}

// Service manages user accounts, tenant profiles, and delegations.
type Service struct {
	users     storage.UserStore
	tenants   storage.TenantStore
	jwtSecret []byte
	jwtTTL    time.Duration
	log       *logger.Logger
}

// New constructs an accounts service. jwtTTL of zero falls back to 24 hours.
func New(users storage.UserStore, tenants storage.TenantStore, jwtSecret []byte, jwtTTL time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	if jwtTTL <= 0 {
		jwtTTL = 24 * time.Hour
	}
	return &Service{users: users, tenants: tenants, jwtSecret: jwtSecret, jwtTTL: jwtTTL, log: log}
}

// Register creates a user-role account. Elevated roles are only granted
// through ChangeRole or the superadmin bootstrap.
func (s *Service) Register(ctx context.Context, email, password string) (account.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return account.User{}, fmt.Errorf("email is required")
	}
	if len(password) < 8 {
		return account.User{}, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return account.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.CreateUser(ctx, account.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         credential.RoleUser,
	})
	if err != nil {
		return account.User{}, err
	}
	s.log.WithField("user_id", created.ID).WithField("email", created.Email).Info("user registered")
	return created, nil
}

// CreateUser provisions an account on someone's behalf. Admins may create
// user-role accounts; only superadmins may create elevated ones. A created
// admin gets a tenant profile exactly as in ChangeRole.
func (s *Service) CreateUser(ctx context.Context, actor account.User, email, password string, role credential.Role) (account.User, error) {
	if actor.Role != credential.RoleAdmin && actor.Role != credential.RoleSuperadmin {
		return account.User{}, ErrForbidden
	}
	if role != credential.RoleUser && actor.Role != credential.RoleSuperadmin {
		return account.User{}, fmt.Errorf("only superadmins can create elevated accounts: %w", ErrForbidden)
	}
	if !role.Valid() {
		return account.User{}, fmt.Errorf("unknown role %q", role)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return account.User{}, fmt.Errorf("email is required")
	}
	if len(password) < 8 {
		return account.User{}, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return account.User{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.users.CreateUser(ctx, account.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return account.User{}, err
	}

	if role == credential.RoleAdmin {
		if err := s.ensureTenantProfile(ctx, created); err != nil {
			return account.User{}, err
		}
	}

	s.log.WithField("user_id", created.ID).
		WithField("role", string(role)).
		WithField("actor_id", actor.ID).
		Info("user created")
	return created, nil
}

// Login verifies the password and issues a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, account.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", account.User{}, ErrInvalidCredentials
		}
		return "", account.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", account.User{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, u)
	if err != nil {
		return "", account.User{}, err
	}
	s.log.WithField("user_id", u.ID).WithField("role", string(u.Role)).Info("user logged in")
	return token, u, nil
}

func (s *Service) issueToken(ctx context.Context, u account.User) (string, error) {
	claims := Claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.jwtTTL)),
		},
	}
	if u.Role == credential.RoleUser {
		delegated, err := s.tenants.ListDelegatedTenants(ctx, u.ID)
		if err != nil {
			return "", fmt.Errorf("load delegations: %w", err)
		}
		for _, t := range delegated {
			claims.DelegatedTenants = append(claims.DelegatedTenants, t.ID)
		}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Principal resolves a user into the descriptor the vault authorizes against.
// Admin principals carry their tenant profile ID as their own ID so the
// identity check in the vault lines up with the tenant identifier.
func (s *Service) Principal(ctx context.Context, u account.User) (credential.Principal, error) {
	p := credential.Principal{ID: u.ID, Role: u.Role}
	switch u.Role {
	case credential.RoleAdmin:
		t, err := s.tenants.GetTenantByUser(ctx, u.ID)
		if err != nil {
			return credential.Principal{}, fmt.Errorf("load tenant profile: %w", err)
		}
		p.ID = t.ID
	case credential.RoleUser:
		delegated, err := s.tenants.ListDelegatedTenants(ctx, u.ID)
		if err != nil {
			return credential.Principal{}, fmt.Errorf("load delegations: %w", err)
		}
		for _, t := range delegated {
			p.DelegatedTenantIDs = append(p.DelegatedTenantIDs, t.ID)
		}
	}
	return p, nil
}

// Get retrieves a user by identifier.
func (s *Service) Get(ctx context.Context, id string) (account.User, error) {
	return s.users.GetUser(ctx, id)
}

// List returns all users. Restricted to superadmins.
func (s *Service) List(ctx context.Context, actor account.User) ([]account.User, error) {
	if actor.Role != credential.RoleSuperadmin {
		return nil, ErrForbidden
	}
	return s.users.ListUsers(ctx)
}

// ChangeRole sets a user's role. Only superadmins may change roles, and never
// their own. Promoting to admin ensures a tenant profile exists so the new
// admin has a credential slot; demotion leaves the profile and its credential
// in place for a possible re-promotion.
func (s *Service) ChangeRole(ctx context.Context, actor account.User, userID string, role credential.Role) (account.User, error) {
	if actor.Role != credential.RoleSuperadmin {
		return account.User{}, ErrForbidden
	}
	if actor.ID == userID {
		return account.User{}, fmt.Errorf("cannot change own role: %w", ErrForbidden)
	}
	if !role.Valid() {
		return account.User{}, fmt.Errorf("unknown role %q", role)
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return account.User{}, err
	}
	previous := u.Role
	u.Role = role
	updated, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return account.User{}, err
	}

	if role == credential.RoleAdmin {
		if err := s.ensureTenantProfile(ctx, updated); err != nil {
			return account.User{}, err
		}
	}

	s.log.WithField("user_id", userID).
		WithField("previous_role", string(previous)).
		WithField("new_role", string(role)).
		WithField("actor_id", actor.ID).
		Info("user role changed")
	return updated, nil
}

// ensureTenantProfile creates the admin's tenant profile if absent. The
// tenant ID equals the user ID so the JWT subject authorizes writes to the
// credential slot directly.
func (s *Service) ensureTenantProfile(ctx context.Context, u account.User) error {
	_, err := s.tenants.GetTenantByUser(ctx, u.ID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		if _, err := s.tenants.CreateTenant(ctx, account.Tenant{
			ID:     u.ID,
			UserID: u.ID,
			Name:   u.Email,
		}); err != nil {
			return fmt.Errorf("create tenant profile: %w", err)
		}
		return nil
	default:
		return err
	}
}

// Delete removes a user account. Superadmins may delete anyone but
// themselves.
func (s *Service) Delete(ctx context.Context, actor account.User, userID string) error {
	if actor.Role != credential.RoleSuperadmin {
		return ErrForbidden
	}
	if actor.ID == userID {
		return fmt.Errorf("cannot delete own account: %w", ErrForbidden)
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.log.WithField("user_id", userID).WithField("actor_id", actor.ID).Info("user deleted")
	return nil
}

// Delegate associates a user-role account with an admin's tenant so the user
// can read its documents. Admins may delegate only to their own tenant;
// superadmins to any.
func (s *Service) Delegate(ctx context.Context, actor account.User, userID, tenantID string) error {
	if err := s.checkDelegationActor(ctx, actor, tenantID); err != nil {
		return err
	}

	target, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if target.Role != credential.RoleUser {
		return fmt.Errorf("only user-role accounts can be delegated: %w", ErrForbidden)
	}

	if err := s.tenants.AddDelegation(ctx, userID, tenantID); err != nil {
		return err
	}
	s.log.WithField("user_id", userID).WithField("tenant_id", tenantID).Info("delegation added")
	return nil
}

// Undelegate removes a user-to-tenant association.
func (s *Service) Undelegate(ctx context.Context, actor account.User, userID, tenantID string) error {
	if err := s.checkDelegationActor(ctx, actor, tenantID); err != nil {
		return err
	}
	if err := s.tenants.RemoveDelegation(ctx, userID, tenantID); err != nil {
		return err
	}
	s.log.WithField("user_id", userID).WithField("tenant_id", tenantID).Info("delegation removed")
	return nil
}

func (s *Service) checkDelegationActor(ctx context.Context, actor account.User, tenantID string) error {
	switch actor.Role {
	case credential.RoleSuperadmin:
		return nil
	case credential.RoleAdmin:
		t, err := s.tenants.GetTenantByUser(ctx, actor.ID)
		if err != nil {
			return fmt.Errorf("load tenant profile: %w", err)
		}
		if t.ID != tenantID {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// UpdateSelf changes the caller's own email or password. Empty fields are
// left as they are; the role can never be changed here.
func (s *Service) UpdateSelf(ctx context.Context, userID, email, password string) (account.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return account.User{}, err
	}

	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		u.Email = email
	}
	if password != "" {
		if len(password) < 8 {
			return account.User{}, fmt.Errorf("password must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return account.User{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	updated, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return account.User{}, err
	}
	s.log.WithField("user_id", userID).Info("profile updated")
	return updated, nil
}

// DelegatedTenants lists the tenants a user-role account may read.
func (s *Service) DelegatedTenants(ctx context.Context, userID string) ([]account.Tenant, error) {
	return s.tenants.ListDelegatedTenants(ctx, userID)
}

// Tenant returns the tenant profile for an admin user.
func (s *Service) Tenant(ctx context.Context, userID string) (account.Tenant, error) {
	return s.tenants.GetTenantByUser(ctx, userID)
}

// UpdateTenant stores workflow folder IDs and profile fields.
func (s *Service) UpdateTenant(ctx context.Context, t account.Tenant) (account.Tenant, error) {
	return s.tenants.UpdateTenant(ctx, t)
}

// ListTenants returns every tenant profile. Restricted to superadmins.
func (s *Service) ListTenants(ctx context.Context, actor account.User) ([]account.Tenant, error) {
	if actor.Role != credential.RoleSuperadmin {
		return nil, ErrForbidden
	}
	return s.tenants.ListTenants(ctx)
}

// RenameTenant changes a tenant profile's display name. Restricted to
// superadmins.
func (s *Service) RenameTenant(ctx context.Context, actor account.User, tenantID, name string) (account.Tenant, error) {
	if actor.Role != credential.RoleSuperadmin {
		return account.Tenant{}, ErrForbidden
	}
	if name = strings.TrimSpace(name); name == "" {
		return account.Tenant{}, fmt.Errorf("name is required")
	}

	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return account.Tenant{}, err
	}
	t.Name = name
	updated, err := s.tenants.UpdateTenant(ctx, t)
	if err != nil {
		return account.Tenant{}, err
	}
	s.log.WithField("tenant_id", tenantID).WithField("actor_id", actor.ID).Info("tenant renamed")
	return updated, nil
}

// RemoveTenant deletes a tenant profile along with its credential record and
// delegations. Restricted to superadmins.
func (s *Service) RemoveTenant(ctx context.Context, actor account.User, tenantID string) error {
	if actor.Role != credential.RoleSuperadmin {
		return ErrForbidden
	}
	if err := s.tenants.DeleteTenant(ctx, tenantID); err != nil {
		return err
	}
	s.log.WithField("tenant_id", tenantID).WithField("actor_id", actor.ID).Info("tenant removed")
	return nil
}

// EnsureSuperadmin creates the bootstrap superadmin account on startup if no
// account with the email exists. An existing account is promoted rather than
// duplicated.
func (s *Service) EnsureSuperadmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == credential.RoleSuperadmin {
			return nil
		}
		existing.Role = credential.RoleSuperadmin
		if _, err := s.users.UpdateUser(ctx, existing); err != nil {
			return fmt.Errorf("promote superadmin: %w", err)
		}
		s.log.WithField("user_id", existing.ID).Info("existing account promoted to superadmin")
		return nil
	case errors.Is(err, storage.ErrNotFound):
	default:
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	created, err := s.users.CreateUser(ctx, account.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         credential.RoleSuperadmin,
	})
	if err != nil {
		return fmt.Errorf("create superadmin: %w", err)
	}
	s.log.WithField("user_id", created.ID).Info("superadmin account created")
	return nil
}

// ParseToken validates a signed token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
