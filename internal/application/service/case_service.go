package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/application/port"
	"github.com/tadbeer/visaflow/internal/domain/residence"
	"github.com/tadbeer/visaflow/internal/domain/workflow"
	"github.com/tadbeer/visaflow/internal/lookup"
	"github.com/tadbeer/visaflow/internal/metrics"
)

var (
	// ErrCaseNotFound is returned when the referenced case does not exist.
	ErrCaseNotFound = errors.New("case not found")

	// ErrRemarksRequired is returned when a cancellation carries no remarks.
	ErrRemarksRequired = errors.New("cancellation remarks are required")
)

// Upload is one file received with an update.
type Upload struct {
	Filename string
	Content  []byte
}

// SubmitStageRequest is the service-level shape of one stage update.
type SubmitStageRequest struct {
	Stage        residence.StageNumber
	Fields       residence.StageFields
	Charge       *residence.ChargedEntityRef
	Attachment   *Upload
	MarkComplete bool
}

// NewCaseRequest is the intake payload for a new case.
type NewCaseRequest struct {
	Name           string
	PassportNumber string
	DateOfBirth    string
	Gender         string
	Nationality    string
	SalePrice      float64
	Currency       string
}

// CaseService orchestrates the workflow engine over the persistence and
// attachment boundaries.
type CaseService struct {
	repo        port.CaseRepository
	lookups     *lookup.Provider
	attachments port.AttachmentStore
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewCaseService creates a new case service.
func NewCaseService(
	repo port.CaseRepository,
	lookups *lookup.Provider,
	attachments port.AttachmentStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CaseService {
	return &CaseService{
		repo:        repo,
		lookups:     lookups,
		attachments: attachments,
		metrics:     m,
		logger:      logger,
	}
}

// CreateCase registers a new case at progress 0.
func (s *CaseService) CreateCase(ctx context.Context, req NewCaseRequest) (*residence.Case, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("case name is required")
	}
	if strings.TrimSpace(req.PassportNumber) == "" {
		return nil, fmt.Errorf("passport number is required")
	}

	now := time.Now().UTC()
	c := &residence.Case{
		Name:           req.Name,
		PassportNumber: req.PassportNumber,
		DateOfBirth:    req.DateOfBirth,
		Gender:         req.Gender,
		Nationality:    req.Nationality,
		SalePrice:      req.SalePrice,
		Currency:       req.Currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Case created",
		zap.Int64("case_id", c.ID),
		zap.String("passport", c.PassportNumber))
	return c, nil
}

// GetCase returns the full case snapshot.
func (s *CaseService) GetCase(ctx context.Context, id int64) (*residence.Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	return c, nil
}

// ListCases returns cases ordered by id.
func (s *CaseService) ListCases(ctx context.Context, limit, offset int) ([]*residence.Case, error) {
	return s.repo.List(ctx, limit, offset)
}

// SubmitStageUpdate runs the transition engine for one stage update and
// persists the result. A charge validation failure triggers exactly one
// lookup refresh-and-retry before the rejection is surfaced, covering the
// eventually-consistent lookup cache.
func (s *CaseService) SubmitStageUpdate(ctx context.Context, caseID int64, req SubmitStageRequest) (*residence.Case, error) {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	upd := workflow.StageUpdate{
		Stage:        req.Stage,
		Fields:       req.Fields,
		Charge:       req.Charge,
		MarkComplete: req.MarkComplete,
	}
	if req.Attachment != nil {
		// The engine only needs to know an attachment accompanies the
		// update; the definitive reference is assigned after it passes.
		upd.AttachmentRef = req.Attachment.Filename
	}

	next, err := workflow.ApplyUpdate(c, upd, s.lookups.Snapshot())
	if errors.Is(err, residence.ErrInvalidChargeEntity) {
		s.logger.Info("Charge validation failed, refreshing lookups",
			zap.Int64("case_id", caseID),
			zap.Int("stage", int(req.Stage)))
		if rerr := s.lookups.Refresh(ctx); rerr != nil {
			return nil, rerr
		}
		next, err = workflow.ApplyUpdate(c, upd, s.lookups.Snapshot())
	}
	if err != nil {
		s.metrics.ObserveStageUpdate(req.Stage, req.MarkComplete, err)
		return nil, err
	}

	if req.Attachment != nil {
		def := residence.DefinitionFor(req.Stage)
		ref, serr := s.attachments.Save(caseID, string(def.FileField), req.Attachment.Filename, req.Attachment.Content)
		if serr != nil {
			// Storage failure is a transport-level error; nothing has been
			// persisted, so the case state is unchanged.
			return nil, fmt.Errorf("failed to store attachment: %w", serr)
		}
		next.Record(req.Stage).AttachmentRef = ref
	}

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, err
	}

	s.metrics.ObserveStageUpdate(req.Stage, req.MarkComplete, nil)
	s.logger.Info("Stage update applied",
		zap.Int64("case_id", caseID),
		zap.Int("stage", int(req.Stage)),
		zap.Bool("completed", req.MarkComplete),
		zap.Int("progress", next.Progress))
	return next, nil
}

// CancelCase marks a case terminal. Remarks are mandatory; cancelling an
// already-cancelled case is a no-op returning the current state.
func (s *CaseService) CancelCase(ctx context.Context, id int64, cancellationCharge float64, remarks string) (*residence.Case, error) {
	if strings.TrimSpace(remarks) == "" {
		return nil, ErrRemarksRequired
	}

	c, err := s.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Cancelled {
		return c, nil
	}

	next := c.Clone()
	next.Cancelled = true
	next.CancellationCharge = cancellationCharge
	next.CancellationRemarks = remarks
	next.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, err
	}

	s.metrics.ObserveCancellation()
	s.logger.Info("Case cancelled",
		zap.Int64("case_id", id),
		zap.Float64("cancellation_charge", cancellationCharge))
	return next, nil
}
