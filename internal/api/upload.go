package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// uploadField is the multipart field name, repeated once per file
const uploadField = "files"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// ValidateUpload checks the selection before anything is sent. It rejects
// an empty selection, unsupported extensions, missing files, directories
// and files above the size limit.
func (c *Client) ValidateUpload(paths []string) error {
	if len(paths) == 0 {
		return NewValidationError("files", "", MsgNoFilesSelected)
	}

	for _, path := range paths {
		if !c.AllowedFile(path) {
			return NewValidationError("files", path,
				fmt.Sprintf("Unsupported file type %q. Allowed: %s.", filepath.Ext(path), strings.Join(c.config.AllowedExtensions, ", ")))
		}

		info, err := os.Stat(path)
		if err != nil {
			return NewValidationError("files", path, fmt.Sprintf("Cannot read %s.", filepath.Base(path)))
		}
		if info.IsDir() {
			return NewValidationError("files", path, fmt.Sprintf("%s is a directory.", filepath.Base(path)))
		}
		if c.config.MaxFileSize > 0 && info.Size() > c.config.MaxFileSize {
			return NewValidationError("files", path,
				fmt.Sprintf("%s exceeds the %d byte upload limit.", filepath.Base(path), c.config.MaxFileSize))
		}
	}

	return nil
}

// AllowedFile reports whether the extension of path is accepted for upload
func (c *Client) AllowedFile(path string) bool {
	if len(c.config.AllowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range c.config.AllowedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// UploadContracts submits all files in one multipart request and returns
// the created analysis jobs in server order. The body is streamed from disk.
func (c *Client) UploadContracts(ctx context.Context, paths []string) ([]*Analysis, error) {
	const op = "upload"

	if err := c.ValidateUpload(paths); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeParts(mw, paths))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("analyses/"), pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var analyses []*Analysis
	if err := c.doJSON(req, op, MsgUploadFailed, &analyses); err != nil {
		return nil, err
	}

	if len(analyses) == 0 {
		apiErr := NewAPIError(ErrTypeServer, op, MsgNoAnalysisData)
		apiErr.Retryable = false
		return nil, apiErr
	}

	c.log.Info("uploaded %d file(s), tracking analysis %s", len(paths), analyses[0].ID)
	return analyses, nil
}

func writeParts(mw *multipart.Writer, paths []string) error {
	for _, path := range paths {
		if err := writeFilePart(mw, path); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, path string) error {
	// #nosec G304 - paths are validated by ValidateUpload
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		uploadField, quoteEscaper.Replace(filepath.Base(path))))
	h.Set("Content-Type", contentType(path))

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to stream %s: %w", path, err)
	}
	return nil
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
