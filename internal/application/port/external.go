package port

import (
	"context"

	"github.com/tadbeer/visaflow/internal/domain/residence"
)

// LookupSource loads a fresh reference-data snapshot from the backing store.
type LookupSource interface {
	Load(ctx context.Context) (*residence.LookupSet, error)
}

// AttachmentStore persists uploaded stage documents and custody card images.
type AttachmentStore interface {
	// Save stores content under a new reference derived from the case, the
	// owning field and the original filename, and returns that reference.
	Save(caseID int64, field string, filename string, content []byte) (string, error)

	// Resolve maps a stored reference back to a readable absolute path.
	Resolve(ref string) (string, error)
}
