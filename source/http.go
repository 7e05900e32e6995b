package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/c360studio/semaudit/audit"
	"github.com/c360studio/semaudit/requirement"
)

// DocumentsDir is the corpus subdirectory holding requirement documents,
// matching the loader's default document patterns.
const DocumentsDir = "requirements"

// documentExtensions lists the file types accepted as requirement
// documents.
var documentExtensions = map[string]bool{
	".yaml":     true,
	".yml":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// docNamePattern validates that a document filename contains only safe
// characters.
var docNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// RunAuditFunc runs an audit over the corpus and returns the rendered
// report.
type RunAuditFunc func(ctx context.Context) (*audit.Report, error)

// HTTPHandler serves the corpus management API: requirement documents
// can be listed, uploaded and deleted, and an audit triggered on demand.
type HTTPHandler struct {
	corpusRoot string
	runAudit   RunAuditFunc
}

// NewHTTPHandler creates an HTTP handler over the corpus root. A nil
// runAudit disables the audit endpoint.
func NewHTTPHandler(corpusRoot string, runAudit RunAuditFunc) *HTTPHandler {
	return &HTTPHandler{
		corpusRoot: corpusRoot,
		runAudit:   runAudit,
	}
}

// RegisterHTTPHandlers registers the corpus management handlers.
// The prefix should include the trailing slash (e.g., "/api/corpus/").
func (h *HTTPHandler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	mux.HandleFunc(prefix+"docs", h.handleDocs)
	mux.HandleFunc(prefix+"docs/", func(w http.ResponseWriter, r *http.Request) {
		h.handleDocsWithName(w, r, prefix+"docs/")
	})
	mux.HandleFunc(prefix+"audit", h.handleAudit)
}

// DocInfo describes one stored requirement document.
type DocInfo struct {
	File     string    `json:"file"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	MIMEType string    `json:"mime_type"`
}

// ListDocsResponse is the JSON response for GET docs.
type ListDocsResponse struct {
	Documents []DocInfo `json:"documents"`
}

// UploadResponse is the JSON response for POST docs.
type UploadResponse struct {
	File    string `json:"file"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleDocs handles GET docs (list) and POST docs (upload).
func (h *HTTPHandler) handleDocs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleUpload(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleList lists the stored requirement documents. A corpus with no
// documents directory yet lists as empty.
func (h *HTTPHandler) handleList(w http.ResponseWriter, _ *http.Request) {
	docsDir := filepath.Join(h.corpusRoot, DocumentsDir)

	entries, err := os.ReadDir(docsDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		writeJSONError(w, http.StatusInternalServerError, "io_error", "Failed to read documents directory")
		return
	}

	resp := ListDocsResponse{Documents: []DocInfo{}}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !documentExtensions[ext] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		resp.Documents = append(resp.Documents, DocInfo{
			File:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
			MIMEType: docMimeType(ext),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleUpload stores an uploaded requirement document. Uploading a
// filename that already exists replaces it.
func (h *HTTPHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Parse multipart form (32MB max)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, http.StatusBadRequest, "parse_error", "Failed to parse multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "file_required", "File field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !documentExtensions[ext] {
		writeJSONError(w, http.StatusBadRequest, "invalid_type", "Unsupported file type. Supported: .yaml, .yml, .md, .markdown, .html, .htm")
		return
	}

	docsDir := filepath.Join(h.corpusRoot, DocumentsDir)
	destPath, err := safeDocPath(docsDir, header.Filename)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_name", err.Error())
		return
	}

	if err := os.MkdirAll(docsDir, 0755); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "io_error", "Failed to create documents directory")
		return
	}

	destFile, err := os.Create(destPath)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "io_error", "Failed to create destination file")
		return
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, file); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "io_error", "Failed to save file")
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		File:    header.Filename,
		Status:  "stored",
		Message: "Document stored; the next audit will include it",
	})
}

// handleDocsWithName routes requests addressing one document by filename.
func (h *HTTPHandler) handleDocsWithName(w http.ResponseWriter, r *http.Request, prefix string) {
	name := strings.TrimPrefix(r.URL.Path, prefix)
	if name == "" {
		http.Error(w, "Document filename required", http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodDelete {
		h.handleDelete(w, r, name)
		return
	}

	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// handleDelete removes a stored requirement document.
func (h *HTTPHandler) handleDelete(w http.ResponseWriter, _ *http.Request, name string) {
	docsDir := filepath.Join(h.corpusRoot, DocumentsDir)

	path, err := safeDocPath(docsDir, name)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_name", err.Error())
		return
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Document file not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "io_error", "Failed to delete file: "+err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleAudit handles POST audit, running an audit over the corpus and
// returning the report.
func (h *HTTPHandler) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.runAudit == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "No audit runner configured")
		return
	}

	report, err := h.runAudit(r.Context())
	if err != nil {
		var verr *requirement.ValidationError
		if errors.As(err, &verr) {
			writeJSONError(w, http.StatusUnprocessableEntity, "invalid_corpus", err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "audit_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Helper functions

// validateDocName ensures a document filename is safe for use in file
// paths.
func validateDocName(name string) error {
	if name == "" {
		return fmt.Errorf("filename is required")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("path traversal not allowed")
	}
	if !docNamePattern.MatchString(name) {
		return fmt.Errorf("invalid filename format")
	}
	if len(name) > 255 {
		return fmt.Errorf("filename too long")
	}
	return nil
}

// safeDocPath resolves a document filename inside the documents
// directory, rejecting anything that would escape it.
func safeDocPath(docsDir, name string) (string, error) {
	if err := validateDocName(name); err != nil {
		return "", err
	}

	path := filepath.Join(docsDir, name)
	rel, err := filepath.Rel(docsDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path traversal not allowed")
	}
	return path, nil
}

// docMimeType returns the MIME type for a document file extension.
func docMimeType(ext string) string {
	switch ext {
	case ".yaml", ".yml":
		return "application/yaml"
	case ".md", ".markdown":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
