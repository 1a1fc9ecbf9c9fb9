package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/application/port"
	"github.com/tadbeer/visaflow/internal/domain/residence"
	"github.com/tadbeer/visaflow/internal/domain/workflow"
	"github.com/tadbeer/visaflow/internal/metrics"
)

// SubmitCustodyRequest is the service-level shape of one custody transition.
type SubmitCustodyRequest struct {
	Target      residence.CustodyStatus
	CardNumber  string
	CardExpiry  string
	HolderName  string
	DateOfBirth string
	Recipient   string
	DeliveredAt *time.Time
	FrontImage  *Upload
	BackImage   *Upload
}

// CustodyService drives the Pending -> Received -> Delivered card pipeline.
type CustodyService struct {
	repo        port.CaseRepository
	attachments port.AttachmentStore
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewCustodyService creates a new custody service.
func NewCustodyService(
	repo port.CaseRepository,
	attachments port.AttachmentStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CustodyService {
	return &CustodyService{
		repo:        repo,
		attachments: attachments,
		metrics:     m,
		logger:      logger,
	}
}

// GetCustodyTasks lists custody-eligible cases with the given status.
func (s *CustodyService) GetCustodyTasks(ctx context.Context, status residence.CustodyStatus) ([]*residence.Case, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid custody status %q", status)
	}
	return s.repo.ListByCustodyStatus(ctx, status)
}

// SubmitCustodyUpdate advances a case's card custody and persists the result.
// Card images are advisory and stored when supplied.
func (s *CustodyService) SubmitCustodyUpdate(ctx context.Context, caseID int64, req SubmitCustodyRequest) (*residence.Case, error) {
	c, err := s.repo.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}

	upd := workflow.CustodyUpdate{
		Target:      req.Target,
		CardNumber:  req.CardNumber,
		CardExpiry:  req.CardExpiry,
		HolderName:  req.HolderName,
		DateOfBirth: req.DateOfBirth,
		Recipient:   req.Recipient,
		DeliveredAt: req.DeliveredAt,
	}
	if req.FrontImage != nil {
		upd.FrontImageRef = req.FrontImage.Filename
	}
	if req.BackImage != nil {
		upd.BackImageRef = req.BackImage.Filename
	}

	next, err := workflow.ApplyCustodyUpdate(c, upd)
	if err != nil {
		s.metrics.ObserveCustodyUpdate(req.Target, err)
		return nil, err
	}

	if req.FrontImage != nil {
		ref, serr := s.attachments.Save(caseID, "card_front", req.FrontImage.Filename, req.FrontImage.Content)
		if serr != nil {
			return nil, fmt.Errorf("failed to store card front image: %w", serr)
		}
		next.Custody.FrontImageRef = ref
	}
	if req.BackImage != nil {
		ref, serr := s.attachments.Save(caseID, "card_back", req.BackImage.Filename, req.BackImage.Content)
		if serr != nil {
			return nil, fmt.Errorf("failed to store card back image: %w", serr)
		}
		next.Custody.BackImageRef = ref
	}

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, err
	}

	s.metrics.ObserveCustodyUpdate(req.Target, nil)
	s.logger.Info("Custody transition applied",
		zap.Int64("case_id", caseID),
		zap.String("target", req.Target.String()))
	return next, nil
}
