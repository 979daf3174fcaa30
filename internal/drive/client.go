// Package drive wraps the external drive provider API. Sessions are built
// per request from a decrypted tenant credential and never cached, so a
// rotated or revoked credential takes effect immediately.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	googledrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/docudrive/document-layer/internal/app/domain/credential"
)

// FileInfo is the provider-side metadata the application cares about.
type FileInfo struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

// WorkflowFolders holds the Drive IDs of the tenant's document workflow
// structure created under the configured root folder.
type WorkflowFolders struct {
	Pending  string
	InReview string
	Approved string
	Rejected string
	Archived string
}

// workflowFolderNames are the display names of the workflow structure, in
// creation order.
var workflowFolderNames = []string{
	"Pendientes",
	"En Revisión",
	"Aprobados",
	"Rechazados",
	"Archivados",
}

// Connector opens provider sessions from decrypted credentials. The files
// service depends on this interface so tests can substitute a fake provider.
type Connector interface {
	Connect(ctx context.Context, doc credential.Document) (Session, error)
}

// Session is an authenticated connection to one tenant's drive.
type Session interface {
	Upload(ctx context.Context, folderID, name, mimeType string, content io.Reader) (FileInfo, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, FileInfo, error)
	Delete(ctx context.Context, fileID string) error
	Metadata(ctx context.Context, fileID string) (FileInfo, error)
	ListFolder(ctx context.Context, folderID string) ([]FileInfo, error)
	CreateWorkflowFolders(ctx context.Context, rootFolderID string) (WorkflowFolders, error)
}

const folderMimeType = "application/vnd.google-apps.folder"

// GoogleConnector builds drive/v3 sessions from service-account documents.
type GoogleConnector struct{}

var _ Connector = GoogleConnector{}

// Connect authenticates against the Drive API with the credential document's
// key material. No token is persisted beyond the returned session.
func (GoogleConnector) Connect(ctx context.Context, doc credential.Document) (Session, error) {
	keyJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize credential document: %w", err)
	}

	svc, err := googledrive.NewService(ctx,
		option.WithCredentialsJSON(keyJSON),
		option.WithScopes(googledrive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &googleSession{svc: svc}, nil
}

type googleSession struct {
	svc *googledrive.Service
}

func (s *googleSession) Upload(ctx context.Context, folderID, name, mimeType string, content io.Reader) (FileInfo, error) {
	meta := &googledrive.File{Name: name}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	call := s.svc.Files.Create(meta).
		Context(ctx).
		Fields("id, name, mimeType, size").
		SupportsAllDrives(true)
	if mimeType != "" {
		call = call.Media(content, googleapi.ContentType(mimeType))
	} else {
		call = call.Media(content)
	}

	created, err := call.Do()
	if err != nil {
		return FileInfo{}, fmt.Errorf("upload %q: %w", name, err)
	}
	return fileInfoFrom(created), nil
}

func (s *googleSession) Download(ctx context.Context, fileID string) (io.ReadCloser, FileInfo, error) {
	info, err := s.Metadata(ctx, fileID)
	if err != nil {
		return nil, FileInfo{}, err
	}

	resp, err := s.svc.Files.Get(fileID).
		Context(ctx).
		SupportsAllDrives(true).
		Download()
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("download %s: %w", fileID, err)
	}
	return resp.Body, info, nil
}

func (s *googleSession) Delete(ctx context.Context, fileID string) error {
	err := s.svc.Files.Delete(fileID).
		Context(ctx).
		SupportsAllDrives(true).
		Do()
	if err != nil {
		return fmt.Errorf("delete %s: %w", fileID, err)
	}
	return nil
}

func (s *googleSession) Metadata(ctx context.Context, fileID string) (FileInfo, error) {
	f, err := s.svc.Files.Get(fileID).
		Context(ctx).
		Fields("id, name, mimeType, size").
		SupportsAllDrives(true).
		Do()
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", fileID, err)
	}
	return fileInfoFrom(f), nil
}

func (s *googleSession) ListFolder(ctx context.Context, folderID string) ([]FileInfo, error) {
	var result []FileInfo
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	pageToken := ""
	for {
		call := s.svc.Files.List().
			Context(ctx).
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, size)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}
		for _, f := range page.Files {
			result = append(result, fileInfoFrom(f))
		}
		if page.NextPageToken == "" {
			return result, nil
		}
		pageToken = page.NextPageToken
	}
}

// CreateWorkflowFolders ensures the five workflow folders exist under the
// root, reusing any that are already there so the call is idempotent.
func (s *googleSession) CreateWorkflowFolders(ctx context.Context, rootFolderID string) (WorkflowFolders, error) {
	existing, err := s.ListFolder(ctx, rootFolderID)
	if err != nil {
		return WorkflowFolders{}, err
	}
	byName := make(map[string]string)
	for _, f := range existing {
		if f.MimeType == folderMimeType {
			byName[f.Name] = f.ID
		}
	}

	ids := make([]string, len(workflowFolderNames))
	for i, name := range workflowFolderNames {
		if id, ok := byName[name]; ok {
			ids[i] = id
			continue
		}
		created, err := s.svc.Files.Create(&googledrive.File{
			Name:     name,
			MimeType: folderMimeType,
			Parents:  []string{rootFolderID},
		}).
			Context(ctx).
			Fields("id").
			SupportsAllDrives(true).
			Do()
		if err != nil {
			return WorkflowFolders{}, fmt.Errorf("create folder %q: %w", name, err)
		}
		ids[i] = created.Id
	}

	return WorkflowFolders{
		Pending:  ids[0],
		InReview: ids[1],
		Approved: ids[2],
		Rejected: ids[3],
		Archived: ids[4],
	}, nil
}

func fileInfoFrom(f *googledrive.File) FileInfo {
	return FileInfo{ID: f.Id, Name: f.Name, MimeType: f.MimeType, Size: f.Size}
}
