package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/application/port"
)

// AttachmentStore keeps stage documents and custody card images on the local
// filesystem under one base directory. References handed out to callers are
// relative paths, so the base directory can move without rewriting records.
type AttachmentStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewAttachmentStore creates a store rooted at baseDir.
func NewAttachmentStore(baseDir string, logger *zap.Logger) (*AttachmentStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve attachment dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachment dir: %w", err)
	}
	return &AttachmentStore{baseDir: abs, logger: logger}, nil
}

var _ port.AttachmentStore = (*AttachmentStore)(nil)

// Save stores content under case_<id>/<field>_<uuid><ext> and returns that
// relative reference.
func (s *AttachmentStore) Save(caseID int64, field string, filename string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ref := filepath.Join(
		fmt.Sprintf("case_%d", caseID),
		fmt.Sprintf("%s_%s%s", field, uuid.NewString(), ext),
	)

	fullPath, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create attachment directory",
			zap.String("path", filepath.Dir(fullPath)), zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write attachment",
			zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}

	s.logger.Debug("Attachment stored",
		zap.Int64("case_id", caseID),
		zap.String("field", field),
		zap.String("ref", ref),
		zap.Int("size", len(content)))
	return ref, nil
}

// Resolve maps a stored reference to an absolute path, rejecting anything
// that would escape the base directory.
func (s *AttachmentStore) Resolve(ref string) (string, error) {
	return s.resolve(ref)
}

func (s *AttachmentStore) resolve(ref string) (string, error) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(ref))
	cleaned := filepath.Clean(full)
	if cleaned != s.baseDir && !strings.HasPrefix(cleaned, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("attachment reference %q escapes storage root", ref)
	}
	return cleaned, nil
}
