// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/docudrive/document-layer/internal/app/domain/account"
	"github.com/docudrive/document-layer/internal/app/domain/credential"
	"github.com/docudrive/document-layer/internal/app/domain/document"
	"github.com/docudrive/document-layer/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.TenantStore = (*Store)(nil)
var _ storage.CredentialStore = (*Store)(nil)
var _ storage.FileStore = (*Store)(nil)
var _ storage.CommentStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return err
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u account.User) (account.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return account.User{}, fmt.Errorf("email %s already registered", u.Email)
		}
		return account.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u account.User) (account.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return account.User{}, err
	}

	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, role = $4, updated_at = $5
		WHERE id = $1
	`, u.ID, u.Email, u.PasswordHash, string(u.Role), u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return account.User{}, fmt.Errorf("email %s already registered", u.Email)
		}
		return account.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) scanUser(row *sql.Row, what, id string) (account.User, error) {
	var u account.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return account.User{}, notFound(err, what, id)
	}
	u.Role = credential.Role(role)
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (account.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
	return s.scanUser(row, "user", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (account.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
	return s.scanUser(row, "user", email)
}

func (s *Store) ListUsers(ctx context.Context) ([]account.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.User
	for rows.Next() {
		var u account.User
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = credential.Role(role)
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// --- TenantStore ------------------------------------------------------------

func (s *Store) CreateTenant(ctx context.Context, t account.Tenant) (account.Tenant, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, user_id, name, folder_pending, folder_in_review,
			folder_approved, folder_rejected, folder_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.UserID, t.Name, t.FolderPending, t.FolderInReview,
		t.FolderApproved, t.FolderRejected, t.FolderArchived, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return account.Tenant{}, fmt.Errorf("user %s already owns a tenant profile", t.UserID)
		}
		return account.Tenant{}, err
	}
	return t, nil
}

func (s *Store) UpdateTenant(ctx context.Context, t account.Tenant) (account.Tenant, error) {
	existing, err := s.GetTenant(ctx, t.ID)
	if err != nil {
		return account.Tenant{}, err
	}

	t.UserID = existing.UserID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE tenants
		SET name = $2, folder_pending = $3, folder_in_review = $4,
			folder_approved = $5, folder_rejected = $6, folder_archived = $7,
			updated_at = $8
		WHERE id = $1
	`, t.ID, t.Name, t.FolderPending, t.FolderInReview,
		t.FolderApproved, t.FolderRejected, t.FolderArchived, t.UpdatedAt)
	if err != nil {
		return account.Tenant{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.Tenant{}, fmt.Errorf("tenant %s: %w", t.ID, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) scanTenant(row *sql.Row, what, id string) (account.Tenant, error) {
	var t account.Tenant
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.FolderPending, &t.FolderInReview,
		&t.FolderApproved, &t.FolderRejected, &t.FolderArchived, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return account.Tenant{}, notFound(err, what, id)
	}
	return t, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (account.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, folder_pending, folder_in_review,
			folder_approved, folder_rejected, folder_archived, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`, id)
	return s.scanTenant(row, "tenant", id)
}

func (s *Store) GetTenantByUser(ctx context.Context, userID string) (account.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, folder_pending, folder_in_review,
			folder_approved, folder_rejected, folder_archived, created_at, updated_at
		FROM tenants
		WHERE user_id = $1
	`, userID)
	return s.scanTenant(row, "tenant for user", userID)
}

func (s *Store) ListTenants(ctx context.Context) ([]account.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, folder_pending, folder_in_review,
			folder_approved, folder_rejected, folder_archived, created_at, updated_at
		FROM tenants
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Tenant
	for rows.Next() {
		var t account.Tenant
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.FolderPending, &t.FolderInReview,
			&t.FolderApproved, &t.FolderRejected, &t.FolderArchived, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("tenant %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) AddDelegation(ctx context.Context, userID, tenantID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_delegations (user_id, tenant_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, tenant_id) DO NOTHING
	`, userID, tenantID)
	return err
}

func (s *Store) RemoveDelegation(ctx context.Context, userID, tenantID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tenant_delegations WHERE user_id = $1 AND tenant_id = $2
	`, userID, tenantID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("delegation %s->%s: %w", userID, tenantID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ListDelegatedTenants(ctx context.Context, userID string) ([]account.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.name, t.folder_pending, t.folder_in_review,
			t.folder_approved, t.folder_rejected, t.folder_archived, t.created_at, t.updated_at
		FROM tenants t
		JOIN tenant_delegations d ON d.tenant_id = t.id
		WHERE d.user_id = $1
		ORDER BY t.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Tenant
	for rows.Next() {
		var t account.Tenant
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.FolderPending, &t.FolderInReview,
			&t.FolderApproved, &t.FolderRejected, &t.FolderArchived, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// --- CredentialStore --------------------------------------------------------

// PutCredential upserts atomically in the database so concurrent writers get
// distinct, gapless versions without a separate read-modify-write cycle.
func (s *Store) PutCredential(ctx context.Context, rec credential.Record) (int64, error) {
	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tenant_credentials
			(tenant_id, credential_type, ciphertext, drive_folder_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $5)
		ON CONFLICT (tenant_id) DO UPDATE SET
			credential_type = EXCLUDED.credential_type,
			ciphertext      = EXCLUDED.ciphertext,
			drive_folder_id = EXCLUDED.drive_folder_id,
			version         = tenant_credentials.version + 1,
			updated_at      = EXCLUDED.updated_at
		RETURNING version
	`, rec.TenantID, rec.CredentialType, rec.Ciphertext, rec.DriveFolderID, now)

	var version int64
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Store) GetCredential(ctx context.Context, tenantID string) (credential.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, credential_type, ciphertext, drive_folder_id, version, created_at, updated_at
		FROM tenant_credentials
		WHERE tenant_id = $1
	`, tenantID)

	var rec credential.Record
	err := row.Scan(&rec.TenantID, &rec.CredentialType, &rec.Ciphertext,
		&rec.DriveFolderID, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return credential.Record{}, notFound(err, "credential for tenant", tenantID)
	}
	return rec, nil
}

func (s *Store) SetCredentialFolder(ctx context.Context, tenantID, driveFolderID string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE tenant_credentials
		SET drive_folder_id = $2,
			version         = version + 1,
			updated_at      = $3
		WHERE tenant_id = $1
		RETURNING version
	`, tenantID, driveFolderID, time.Now().UTC())

	var version int64
	if err := row.Scan(&version); err != nil {
		return 0, notFound(err, "credential for tenant", tenantID)
	}
	return version, nil
}

func (s *Store) DeleteCredential(ctx context.Context, tenantID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tenant_credentials WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// --- FileStore --------------------------------------------------------------

func (s *Store) CreateFile(ctx context.Context, f document.File) (document.File, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, filename, original_filename, drive_file_id, mime_type,
			size, tenant_id, uploaded_by_user_id, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, f.ID, f.Filename, f.OriginalFilename, f.DriveFileID, f.MimeType,
		f.Size, f.TenantID, f.UploadedByUserID, f.Description, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return document.File{}, err
	}
	return f, nil
}

func (s *Store) GetFile(ctx context.Context, id string) (document.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, original_filename, drive_file_id, mime_type,
			size, tenant_id, uploaded_by_user_id, description, created_at, updated_at
		FROM files
		WHERE id = $1
	`, id)

	var f document.File
	err := row.Scan(&f.ID, &f.Filename, &f.OriginalFilename, &f.DriveFileID, &f.MimeType,
		&f.Size, &f.TenantID, &f.UploadedByUserID, &f.Description, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return document.File{}, notFound(err, "file", id)
	}
	return f, nil
}

func (s *Store) ListFiles(ctx context.Context, tenantID string) ([]document.File, error) {
	query := `
		SELECT id, filename, original_filename, drive_file_id, mime_type,
			size, tenant_id, uploaded_by_user_id, description, created_at, updated_at
		FROM files`
	args := []any{}
	if tenantID != "" {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []document.File
	for rows.Next() {
		var f document.File
		if err := rows.Scan(&f.ID, &f.Filename, &f.OriginalFilename, &f.DriveFileID, &f.MimeType,
			&f.Size, &f.TenantID, &f.UploadedByUserID, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (s *Store) DeleteFile(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("file %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// --- CommentStore -----------------------------------------------------------

func (s *Store) CreateComment(ctx context.Context, c document.Comment) (document.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, file_id, user_id, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.FileID, c.UserID, c.Text, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return document.Comment{}, err
	}
	return c, nil
}

func (s *Store) UpdateComment(ctx context.Context, c document.Comment) (document.Comment, error) {
	existing, err := s.GetComment(ctx, c.ID)
	if err != nil {
		return document.Comment{}, err
	}

	c.FileID = existing.FileID
	c.UserID = existing.UserID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE comments SET text = $2, updated_at = $3 WHERE id = $1
	`, c.ID, c.Text, c.UpdatedAt)
	if err != nil {
		return document.Comment{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return document.Comment{}, fmt.Errorf("comment %s: %w", c.ID, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) GetComment(ctx context.Context, id string) (document.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_id, user_id, text, created_at, updated_at
		FROM comments
		WHERE id = $1
	`, id)

	var c document.Comment
	if err := row.Scan(&c.ID, &c.FileID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return document.Comment{}, notFound(err, "comment", id)
	}
	return c, nil
}

func (s *Store) ListFileComments(ctx context.Context, fileID string) ([]document.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, user_id, text, created_at, updated_at
		FROM comments
		WHERE file_id = $1
		ORDER BY created_at
	`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []document.Comment
	for rows.Next() {
		var c document.Comment
		if err := rows.Scan(&c.ID, &c.FileID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("comment %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) AppendCommentEvent(ctx context.Context, ev document.CommentEvent) (document.CommentEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comment_events (id, comment_id, action, previous_text, new_text, actor_user_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.CommentID, string(ev.Action), ev.PreviousText, ev.NewText, ev.ActorUserID, ev.Timestamp)
	if err != nil {
		return document.CommentEvent{}, err
	}
	return ev, nil
}

func (s *Store) ListCommentEvents(ctx context.Context, commentID string) ([]document.CommentEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, comment_id, action, previous_text, new_text, actor_user_id, occurred_at
		FROM comment_events
		WHERE comment_id = $1
		ORDER BY occurred_at
	`, commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []document.CommentEvent
	for rows.Next() {
		var ev document.CommentEvent
		var action string
		if err := rows.Scan(&ev.ID, &ev.CommentID, &action, &ev.PreviousText, &ev.NewText, &ev.ActorUserID, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Action = document.CommentAction(action)
		result = append(result, ev)
	}
	return result, rows.Err()
}
