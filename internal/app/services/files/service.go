// Package files proxies document content between clients and each tenant's
// external drive, and manages file metadata and comment threads. Content is
// streamed through; nothing is written to local disk.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/docudrive/document-layer/internal/app/domain/account"
	"github.com/docudrive/document-layer/internal/app/domain/credential"
	"github.com/docudrive/document-layer/internal/app/domain/document"
	"github.com/docudrive/document-layer/internal/app/metrics"
	"github.com/docudrive/document-layer/internal/app/services/accounts"
	"github.com/docudrive/document-layer/internal/app/storage"
	"github.com/docudrive/document-layer/internal/app/vault"
	"github.com/docudrive/document-layer/internal/drive"
	"github.com/docudrive/document-layer/pkg/logger"
)

// Service manages tenant documents and their comments.
type Service struct {
	files     storage.FileStore
	comments  storage.CommentStore
	tenants   storage.TenantStore
	vault     *vault.Service
	connector drive.Connector
	log       *logger.Logger
}

// New constructs a files service.
func New(files storage.FileStore, comments storage.CommentStore, tenants storage.TenantStore,
	v *vault.Service, connector drive.Connector, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("files")
	}
	return &Service{files: files, comments: comments, tenants: tenants, vault: v, connector: connector, log: log}
}

// session fetches the tenant's credentials through the vault and opens a
// provider session. The vault enforces read access, so every drive operation
// inherits its decision table.
func (s *Service) session(ctx context.Context, p credential.Principal, tenantID string) (drive.Session, string, error) {
	doc, folderID, err := s.vault.Fetch(ctx, p, tenantID)
	if err != nil {
		return nil, "", err
	}
	sess, err := s.connector.Connect(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("connect to drive: %w", err)
	}
	return sess, folderID, nil
}

// UploadInput describes an incoming document.
type UploadInput struct {
	TenantID    string
	Filename    string
	MimeType    string
	Description string
	Content     io.Reader
}

// Upload streams a document into the tenant's drive folder and records its
// metadata. The stored filename is sanitized; the original is kept verbatim.
func (s *Service) Upload(ctx context.Context, actor account.User, p credential.Principal, in UploadInput) (document.File, error) {
	if strings.TrimSpace(in.Filename) == "" {
		return document.File{}, fmt.Errorf("filename is required")
	}
	if in.Content == nil {
		return document.File{}, fmt.Errorf("content is required")
	}

	sess, folderID, err := s.session(ctx, p, in.TenantID)
	if err != nil {
		return document.File{}, err
	}

	name := sanitizeFilename(in.Filename)
	info, err := sess.Upload(ctx, folderID, name, in.MimeType, in.Content)
	metrics.RecordDriveTransfer("upload", info.Size, err)
	if err != nil {
		return document.File{}, err
	}

	created, err := s.files.CreateFile(ctx, document.File{
		Filename:         name,
		OriginalFilename: in.Filename,
		DriveFileID:      info.ID,
		MimeType:         info.MimeType,
		Size:             info.Size,
		TenantID:         in.TenantID,
		UploadedByUserID: actor.ID,
		Description:      in.Description,
	})
	if err != nil {
		// The drive copy is orphaned if metadata cannot be recorded; remove
		// it so the folder and the database stay in sync.
		if delErr := sess.Delete(ctx, info.ID); delErr != nil {
			s.log.WithError(delErr).WithField("drive_file_id", info.ID).Warn("orphaned drive file cleanup failed")
		}
		return document.File{}, err
	}

	s.log.WithField("file_id", created.ID).
		WithField("tenant_id", in.TenantID).
		WithField("user_id", actor.ID).
		WithField("size", created.Size).
		Info("file uploaded")
	return created, nil
}

// Download streams a document's content from the owning tenant's drive.
// Callers must drain and close the reader.
func (s *Service) Download(ctx context.Context, p credential.Principal, fileID string) (io.ReadCloser, document.File, error) {
	f, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, document.File{}, err
	}

	sess, _, err := s.session(ctx, p, f.TenantID)
	if err != nil {
		return nil, document.File{}, err
	}

	content, _, err := sess.Download(ctx, f.DriveFileID)
	metrics.RecordDriveTransfer("download", f.Size, err)
	if err != nil {
		return nil, document.File{}, err
	}
	return content, f, nil
}

// Get returns file metadata, subject to read access on the owning tenant.
func (s *Service) Get(ctx context.Context, p credential.Principal, fileID string) (document.File, error) {
	f, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return document.File{}, err
	}
	if err := vault.Authorize(p, f.TenantID, vault.OpRead); err != nil {
		return document.File{}, err
	}
	return f, nil
}

// List returns the tenant's files, subject to read access.
func (s *Service) List(ctx context.Context, p credential.Principal, tenantID string) ([]document.File, error) {
	if err := vault.Authorize(p, tenantID, vault.OpRead); err != nil {
		return nil, err
	}
	return s.files.ListFiles(ctx, tenantID)
}

// Delete removes the document from the drive and its metadata record. Only
// principals with write access on the owning tenant may delete.
func (s *Service) Delete(ctx context.Context, p credential.Principal, fileID string) error {
	f, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	if err := vault.Authorize(p, f.TenantID, vault.OpWrite); err != nil {
		return err
	}

	sess, _, err := s.session(ctx, p, f.TenantID)
	if err != nil {
		return err
	}
	if err := sess.Delete(ctx, f.DriveFileID); err != nil {
		return err
	}
	if err := s.files.DeleteFile(ctx, f.ID); err != nil {
		return err
	}

	s.log.WithField("file_id", f.ID).WithField("tenant_id", f.TenantID).Info("file deleted")
	return nil
}

// SetupWorkflowFolders creates the tenant's document workflow folders under
// its configured drive folder and records their IDs on the profile. Safe to
// call repeatedly.
func (s *Service) SetupWorkflowFolders(ctx context.Context, p credential.Principal, tenantID string) (account.Tenant, error) {
	if err := vault.Authorize(p, tenantID, vault.OpWrite); err != nil {
		return account.Tenant{}, err
	}

	sess, rootFolderID, err := s.session(ctx, p, tenantID)
	if err != nil {
		return account.Tenant{}, err
	}
	if rootFolderID == "" {
		return account.Tenant{}, fmt.Errorf("tenant has no drive folder configured")
	}

	folders, err := sess.CreateWorkflowFolders(ctx, rootFolderID)
	if err != nil {
		return account.Tenant{}, err
	}

	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return account.Tenant{}, err
	}
	t.FolderPending = folders.Pending
	t.FolderInReview = folders.InReview
	t.FolderApproved = folders.Approved
	t.FolderRejected = folders.Rejected
	t.FolderArchived = folders.Archived

	updated, err := s.tenants.UpdateTenant(ctx, t)
	if err != nil {
		return account.Tenant{}, err
	}
	s.log.WithField("tenant_id", tenantID).Info("workflow folders created")
	return updated, nil
}

// ListFolder lists the raw drive contents of one of the tenant's folders.
func (s *Service) ListFolder(ctx context.Context, p credential.Principal, tenantID, folderID string) ([]drive.FileInfo, error) {
	sess, rootFolderID, err := s.session(ctx, p, tenantID)
	if err != nil {
		return nil, err
	}
	if folderID == "" {
		folderID = rootFolderID
	}
	return sess.ListFolder(ctx, folderID)
}

// --- Comments ---------------------------------------------------------------

// AddComment attaches a remark to a file. Anyone with read access to the file
// may comment.
func (s *Service) AddComment(ctx context.Context, actor account.User, p credential.Principal, fileID, text string) (document.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return document.Comment{}, fmt.Errorf("text is required")
	}

	f, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return document.Comment{}, err
	}
	if err := vault.Authorize(p, f.TenantID, vault.OpRead); err != nil {
		return document.Comment{}, err
	}

	c, err := s.comments.CreateComment(ctx, document.Comment{FileID: fileID, UserID: actor.ID, Text: text})
	if err != nil {
		return document.Comment{}, err
	}
	s.appendEvent(ctx, document.CommentEvent{
		CommentID:   c.ID,
		Action:      document.CommentCreated,
		NewText:     text,
		ActorUserID: actor.ID,
	})
	return c, nil
}

// EditComment replaces a comment's text. Only the author may edit.
func (s *Service) EditComment(ctx context.Context, actor account.User, commentID, text string) (document.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return document.Comment{}, fmt.Errorf("text is required")
	}

	c, err := s.comments.GetComment(ctx, commentID)
	if err != nil {
		return document.Comment{}, err
	}
	if c.UserID != actor.ID {
		return document.Comment{}, accounts.ErrForbidden
	}

	previous := c.Text
	c.Text = text
	updated, err := s.comments.UpdateComment(ctx, c)
	if err != nil {
		return document.Comment{}, err
	}
	s.appendEvent(ctx, document.CommentEvent{
		CommentID:    commentID,
		Action:       document.CommentEdited,
		PreviousText: previous,
		NewText:      text,
		ActorUserID:  actor.ID,
	})
	return updated, nil
}

// DeleteComment removes a comment. The author may always delete their own;
// principals with write access on the file's tenant may moderate.
func (s *Service) DeleteComment(ctx context.Context, actor account.User, p credential.Principal, commentID string) error {
	c, err := s.comments.GetComment(ctx, commentID)
	if err != nil {
		return err
	}

	if c.UserID != actor.ID {
		f, err := s.files.GetFile(ctx, c.FileID)
		if err != nil {
			return err
		}
		if err := vault.Authorize(p, f.TenantID, vault.OpWrite); err != nil {
			return accounts.ErrForbidden
		}
	}

	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	s.appendEvent(ctx, document.CommentEvent{
		CommentID:    commentID,
		Action:       document.CommentDeleted,
		PreviousText: c.Text,
		ActorUserID:  actor.ID,
	})
	return nil
}

// ListComments returns a file's comments, subject to read access.
func (s *Service) ListComments(ctx context.Context, p credential.Principal, fileID string) ([]document.Comment, error) {
	f, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := vault.Authorize(p, f.TenantID, vault.OpRead); err != nil {
		return nil, err
	}
	return s.comments.ListFileComments(ctx, fileID)
}

// CommentHistory returns a comment's audit trail. The history survives the
// comment's deletion.
func (s *Service) CommentHistory(ctx context.Context, p credential.Principal, commentID string) ([]document.CommentEvent, error) {
	events, err := s.comments.ListCommentEvents(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("comment %s: %w", commentID, storage.ErrNotFound)
	}

	// Authorization hangs off the file if the comment still exists; a
	// deleted comment's history stays visible to privileged roles only.
	c, err := s.comments.GetComment(ctx, commentID)
	switch {
	case err == nil:
		f, err := s.files.GetFile(ctx, c.FileID)
		if err != nil {
			return nil, err
		}
		if err := vault.Authorize(p, f.TenantID, vault.OpRead); err != nil {
			return nil, err
		}
	case errors.Is(err, storage.ErrNotFound):
		if p.Role != credential.RoleSuperadmin && p.Role != credential.RoleAdmin {
			return nil, accounts.ErrForbidden
		}
	default:
		return nil, err
	}
	return events, nil
}

func (s *Service) appendEvent(ctx context.Context, ev document.CommentEvent) {
	if _, err := s.comments.AppendCommentEvent(ctx, ev); err != nil {
		s.log.WithError(err).WithField("comment_id", ev.CommentID).Warn("comment history append failed")
	}
}

// sanitizeFilename strips directory components and characters the drive
// rejects, keeping the extension.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	replacer := strings.NewReplacer("\x00", "", "\n", " ", "\r", " ")
	name = strings.TrimSpace(replacer.Replace(name))
	if name == "" || name == "." || name == ".." {
		return "unnamed"
	}
	return name
}
