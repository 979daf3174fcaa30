// Package httpapi exposes the document layer's REST surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	app "github.com/docudrive/document-layer/internal/app"
	"github.com/docudrive/document-layer/internal/app/domain/account"
	"github.com/docudrive/document-layer/internal/app/domain/credential"
	"github.com/docudrive/document-layer/internal/app/services/accounts"
	filessvc "github.com/docudrive/document-layer/internal/app/services/files"
	"github.com/docudrive/document-layer/internal/app/storage"
	"github.com/docudrive/document-layer/internal/app/vault"
	"github.com/docudrive/document-layer/internal/middleware"
	"github.com/docudrive/document-layer/pkg/logger"
)

// maxUploadBytes caps multipart uploads held in memory before spooling.
const maxUploadBytes = 32 << 20

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a mux exposing the core REST API. Authentication is
// applied outside; /auth/register, /auth/login, and /health must be in the
// middleware's skip list.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/auth/register", h.register)
	mux.HandleFunc("/auth/login", h.login)
	mux.HandleFunc("/auth/me", h.me)
	mux.HandleFunc("/users", h.users)
	mux.HandleFunc("/users/", h.userResources)
	mux.HandleFunc("/tenants", h.tenants)
	mux.HandleFunc("/tenants/", h.tenantResources)
	mux.HandleFunc("/tenants/me", h.tenantProfile)
	mux.HandleFunc("/drive/credentials", h.driveCredentials)
	mux.HandleFunc("/drive/credentials/rotate", h.rotateCredentials)
	mux.HandleFunc("/drive/folder", h.driveFolder)
	mux.HandleFunc("/drive/folders", h.driveFolders)
	mux.HandleFunc("/drive/folders/setup", h.setupFolders)
	mux.HandleFunc("/files", h.files)
	mux.HandleFunc("/files/", h.fileResources)
	mux.HandleFunc("/comments/", h.commentResources)
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth -------------------------------------------------------------------

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.app.Accounts.Register(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, u, err := h.app.Accounts.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         u,
	})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	u, _, ok := h.identity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// --- users ------------------------------------------------------------------

func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := h.app.Accounts.List(r.Context(), actor)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var payload struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		role := credential.Role(payload.Role)
		if payload.Role == "" {
			role = credential.RoleUser
		}
		created, err := h.app.Accounts.CreateUser(r.Context(), actor, payload.Email, payload.Password, role)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) userResources(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.identity(w, r)
	if !ok {
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	userID := parts[0]

	if userID == "me" {
		h.selfResources(w, r, actor, parts[1:])
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			if actor.Role != credential.RoleSuperadmin && actor.ID != userID {
				h.writeServiceError(w, r, accounts.ErrForbidden)
				return
			}
			u, err := h.app.Accounts.Get(r.Context(), userID)
			if err != nil {
				h.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, u)
		case http.MethodDelete:
			if err := h.app.Accounts.Delete(r.Context(), actor, userID); err != nil {
				h.writeServiceError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "role":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Role string `json:"role"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.app.Accounts.ChangeRole(r.Context(), actor, userID, credential.Role(payload.Role))
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case "delegations":
		h.userDelegations(w, r, actor, userID, parts[2:])

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// selfResources serves /users/me: the caller's own profile and the tenants
// delegated to them.
func (h *handler) selfResources(w http.ResponseWriter, r *http.Request, actor account.User, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, actor)
		case http.MethodPatch:
			var payload struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			updated, err := h.app.Accounts.UpdateSelf(r.Context(), actor.ID, payload.Email, payload.Password)
			if err != nil {
				h.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if rest[0] == "admins" && r.Method == http.MethodGet {
		list, err := h.app.Accounts.DelegatedTenants(r.Context(), actor.ID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) userDelegations(w http.ResponseWriter, r *http.Request, actor account.User, userID string, rest []string) {
	switch r.Method {
	case http.MethodPost:
		if len(rest) != 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var payload struct {
			TenantID string `json:"tenant_id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.app.Accounts.Delegate(r.Context(), actor, userID, payload.TenantID); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if len(rest) != 1 || rest[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := h.app.Accounts.Undelegate(r.Context(), actor, userID, rest[0]); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) tenants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	actor, _, ok := h.identity(w, r)
	if !ok {
		return
	}
	list, err := h.app.Accounts.ListTenants(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) tenantResources(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.identity(w, r)
	if !ok {
		return
	}

	tenantID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tenants"), "/")
	if tenantID == "" || strings.Contains(tenantID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var payload struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.app.Accounts.RenameTenant(r.Context(), actor, tenantID, payload.Name)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := h.app.Accounts.RemoveTenant(r.Context(), actor, tenantID); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) tenantProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	actor, _, ok := h.identity(w, r)
	if !ok {
		return
	}
	t, err := h.app.Accounts.Tenant(r.Context(), actor.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- drive credentials --------------------------------------------------------

// resolveTenant picks the tenant a credential operation targets: admins act
// on their own slot, superadmins name one explicitly.
func (h *handler) resolveTenant(r *http.Request, p credential.Principal, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if q := r.URL.Query().Get("tenant_id"); q != "" {
		return q
	}
	return p.ID
}

func (h *handler) driveCredentials(w http.ResponseWriter, r *http.Request) {
	_, p, ok := h.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPost:
		var payload struct {
			TenantID      string         `json:"tenant_id"`
			Credentials   map[string]any `json:"credentials"`
			DriveFolderID string         `json:"drive_folder_id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		tenantID := h.resolveTenant(r, p, payload.TenantID)
		version, err := h.app.Vault.Store(r.Context(), p, tenantID, payload.Credentials, payload.DriveFolderID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"tenant_id": tenantID, "version": version})

	case http.MethodGet:
		tenantID := h.resolveTenant(r, p, "")
		status, err := h.app.Vault.Describe(r.Context(), p, tenantID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, status)

	case http.MethodDelete:
		tenantID := h.resolveTenant(r, p, "")
		existed, err := h.app.Vault.Revoke(r.Context(), p, tenantID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tenant_id": tenantID, "revoked": existed})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) rotateCredentials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, p, ok := h.identity(w, r)
	if !ok {
		return
	}
	var payload struct {
		TenantID      string         `json:"tenant_id"`
		Credentials   map[string]any `json:"credentials"`
		DriveFolderID string         `json:"drive_folder_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tenantID := h.resolveTenant(r, p, payload.TenantID)
	oldVersion, newVersion, err := h.app.Vault.Rotate(r.Context(), p, tenantID, payload.Credentials, payload.DriveFolderID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id":   tenantID,
		"old_version": oldVersion,
		"new_version": newVersion,
	})
}

func (h *handler) driveFolder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, p, ok := h.identity(w, r)
	if !ok {
		return
	}
	var payload struct {
		TenantID      string `json:"tenant_id"`
		DriveFolderID string `json:"drive_folder_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tenantID := h.resolveTenant(r, p, payload.TenantID)
	version, err := h.app.Vault.UpdateFolder(r.Context(), p, tenantID, payload.DriveFolderID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id":       tenantID,
		"drive_folder_id": payload.DriveFolderID,
		"version":         version,
	})
}

func (h *handler) driveFolders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, p, ok := h.identity(w, r)
	if !ok {
		return
	}
	tenantID := h.resolveTenant(r, p, "")
	listing, err := h.app.Files.ListFolder(r.Context(), p, tenantID, r.URL.Query().Get("folder_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *handler) setupFolders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, p, ok := h.identity(w, r)
	if !ok {
		return
	}
	tenantID := h.resolveTenant(r, p, "")
	t, err := h.app.Files.SetupWorkflowFolders(r.Context(), p, tenantID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- files ------------------------------------------------------------------

func (h *handler) files(w http.ResponseWriter, r *http.Request) {
	actor, p, ok := h.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("file field is required"))
			return
		}
		defer file.Close()

		tenantID := h.resolveTenant(r, p, r.FormValue("tenant_id"))
		created, err := h.app.Files.Upload(r.Context(), actor, p, filessvc.UploadInput{
			TenantID:    tenantID,
			Filename:    header.Filename,
			MimeType:    header.Header.Get("Content-Type"),
			Description: r.FormValue("description"),
			Content:     file,
		})
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		tenantID := h.resolveTenant(r, p, "")
		list, err := h.app.Files.List(r.Context(), p, tenantID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) fileResources(w http.ResponseWriter, r *http.Request) {
	actor, p, ok := h.identity(w, r)
	if !ok {
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/files"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	fileID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			f, err := h.app.Files.Get(r.Context(), p, fileID)
			if err != nil {
				h.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, f)
		case http.MethodDelete:
			if err := h.app.Files.Delete(r.Context(), p, fileID); err != nil {
				h.writeServiceError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "download":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		content, meta, err := h.app.Files.Download(r.Context(), p, fileID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		defer content.Close()

		mimeType := meta.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.Filename))
		if _, err := io.Copy(w, content); err != nil {
			h.log.WithError(err).WithField("file_id", fileID).Warn("download stream interrupted")
		}

	case "comments":
		h.fileComments(w, r, actor, p, fileID)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) fileComments(w http.ResponseWriter, r *http.Request, actor account.User, p credential.Principal, fileID string) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Text string `json:"text"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		c, err := h.app.Files.AddComment(r.Context(), actor, p, fileID, payload.Text)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)

	case http.MethodGet:
		list, err := h.app.Files.ListComments(r.Context(), p, fileID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) commentResources(w http.ResponseWriter, r *http.Request) {
	actor, p, ok := h.identity(w, r)
	if !ok {
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/comments"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	commentID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodPut:
			var payload struct {
				Text string `json:"text"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			c, err := h.app.Files.EditComment(r.Context(), actor, commentID, payload.Text)
			if err != nil {
				h.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, c)
		case http.MethodDelete:
			if err := h.app.Files.DeleteComment(r.Context(), actor, p, commentID); err != nil {
				h.writeServiceError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if parts[1] == "history" && r.Method == http.MethodGet {
		events, err := h.app.Files.CommentHistory(r.Context(), p, commentID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

// --- helpers ----------------------------------------------------------------

// identity resolves the authenticated actor and principal from the request
// context. A missing identity means the auth middleware was bypassed.
func (h *handler) identity(w http.ResponseWriter, r *http.Request) (account.User, credential.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return account.User{}, credential.Principal{}, false
	}
	u, err := h.app.Accounts.Get(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("unknown account"))
		return account.User{}, credential.Principal{}, false
	}
	return u, p, true
}

// writeServiceError maps service errors onto HTTP responses. Authorization
// failures and missing records surface deliberately generic messages so the
// API does not reveal which tenants or credentials exist; the precise cause
// goes to the log.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logCtx := h.log.WithField("path", r.URL.Path).WithField("method", r.Method)

	if verr, ok := vault.AsValidationError(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": verr.Error(),
			"kind":  string(verr.Kind),
			"field": verr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, vault.ErrNotAuthorized), errors.Is(err, accounts.ErrForbidden):
		logCtx.WithError(err).Warn("request denied")
		writeError(w, http.StatusForbidden, fmt.Errorf("access denied"))
	case errors.Is(err, vault.ErrCredentialNotFound), errors.Is(err, storage.ErrNotFound):
		logCtx.WithError(err).Info("resource not found")
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
	case errors.Is(err, vault.ErrDecryptFailed):
		writeError(w, http.StatusInternalServerError, fmt.Errorf("internal error"))
	default:
		logCtx.WithError(err).Error("request failed")
		if strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "must be") {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Errorf("internal error"))
	}
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
