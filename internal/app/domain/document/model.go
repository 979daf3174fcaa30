// Package document defines managed files and their comment threads.
package document

import "time"

// File is a document stored in the owning tenant's external drive folder.
// DriveFileID is the provider-side identifier; content never touches local
// storage.
type File struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	DriveFileID      string    `json:"drive_file_id"`
	MimeType         string    `json:"mime_type"`
	Size             int64     `json:"size"`
	TenantID         string    `json:"tenant_id"`
	UploadedByUserID string    `json:"uploaded_by_user_id"`
	Description      string    `json:"description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Comment is a user remark attached to a file.
type Comment struct {
	ID        string    `json:"id"`
	FileID    string    `json:"file_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentAction enumerates the audited comment mutations.
type CommentAction string

const (
	CommentCreated CommentAction = "created"
	CommentEdited  CommentAction = "edited"
	CommentDeleted CommentAction = "deleted"
)

// CommentEvent is one entry in a comment's audit history.
type CommentEvent struct {
	ID           string        `json:"id"`
	CommentID    string        `json:"comment_id"`
	Action       CommentAction `json:"action"`
	PreviousText string        `json:"previous_text,omitempty"`
	NewText      string        `json:"new_text,omitempty"`
	ActorUserID  string        `json:"actor_user_id"`
	Timestamp    time.Time     `json:"timestamp"`
}
