package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/domain/residence"
	"github.com/tadbeer/visaflow/internal/lookup"
	"github.com/tadbeer/visaflow/internal/metrics"
)

type mockRepo struct {
	createFn        func(ctx context.Context, c *residence.Case) error
	getFn           func(ctx context.Context, id int64) (*residence.Case, error)
	saveFn          func(ctx context.Context, c *residence.Case) error
	listFn          func(ctx context.Context, limit, offset int) ([]*residence.Case, error)
	listByCustodyFn func(ctx context.Context, status residence.CustodyStatus) ([]*residence.Case, error)
}

func (m *mockRepo) Create(ctx context.Context, c *residence.Case) error {
	return m.createFn(ctx, c)
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (*residence.Case, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) Save(ctx context.Context, c *residence.Case) error {
	return m.saveFn(ctx, c)
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*residence.Case, error) {
	return m.listFn(ctx, limit, offset)
}

func (m *mockRepo) ListByCustodyStatus(ctx context.Context, status residence.CustodyStatus) ([]*residence.Case, error) {
	return m.listByCustodyFn(ctx, status)
}

type mockLookupSource struct {
	loadFn    func(ctx context.Context) (*residence.LookupSet, error)
	loadCalls int
}

func (m *mockLookupSource) Load(ctx context.Context) (*residence.LookupSet, error) {
	m.loadCalls++
	return m.loadFn(ctx)
}

type mockAttachmentStore struct {
	saveFn    func(caseID int64, field, filename string, content []byte) (string, error)
	saveCalls int
}

func (m *mockAttachmentStore) Save(caseID int64, field, filename string, content []byte) (string, error) {
	m.saveCalls++
	if m.saveFn != nil {
		return m.saveFn(caseID, field, filename, content)
	}
	return "case_1/doc.pdf", nil
}

func (m *mockAttachmentStore) Resolve(ref string) (string, error) {
	return "/attachments/" + ref, nil
}

func fullLookupSet() *residence.LookupSet {
	return &residence.LookupSet{
		Accounts:  []residence.ChargeEntity{{ID: 7, Name: "Operations Account"}},
		Suppliers: []residence.ChargeEntity{{ID: 12, Name: "Typing Centre"}},
		LoadedAt:  time.Now().UTC(),
	}
}

func newTestProvider(t *testing.T, source *mockLookupSource) *lookup.Provider {
	t.Helper()
	p := lookup.NewProvider(source, zap.NewNop(), lookup.WithRefreshInterval(0))
	require.NoError(t, p.Init(context.Background()))
	return p
}

func newCaseService(t *testing.T, repo *mockRepo, source *mockLookupSource, store *mockAttachmentStore) *CaseService {
	t.Helper()
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	return NewCaseService(repo, newTestProvider(t, source), store, m, zap.NewNop())
}

func storedCase() *residence.Case {
	now := time.Now().UTC()
	return &residence.Case{
		ID:             1,
		Name:           "Amira Hassan",
		PassportNumber: "P1234567",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCreateCaseRequiresIdentity(t *testing.T) {
	svc := newCaseService(t,
		&mockRepo{},
		&mockLookupSource{loadFn: func(context.Context) (*residence.LookupSet, error) { return fullLookupSet(), nil }},
		&mockAttachmentStore{})

	_, err := svc.CreateCase(context.Background(), NewCaseRequest{PassportNumber: "P1"})
	assert.Error(t, err)

	_, err = svc.CreateCase(context.Background(), NewCaseRequest{Name: "Amira"})
	assert.Error(t, err)
}

func TestCreateCaseAssignsID(t *testing.T) {
	repo := &mockRepo{
		createFn: func(_ context.Context, c *residence.Case) error {
			c.ID = 42
			return nil
		},
	}
	svc := newCaseService(t, repo,
		&mockLookupSource{loadFn: func(context.Context) (*residence.LookupSet, error) { return fullLookupSet(), nil }},
		&mockAttachmentStore{})

	created, err := svc.CreateCase(context.Background(), NewCaseRequest{
		Name:           "Amira Hassan",
		PassportNumber: "P1234567",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, 0, created.Progress)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestGetCaseNotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(context.Context, int64) (*residence.Case, error) { return nil, nil },
	}
	svc := newCaseService(t, repo,
		&mockLookupSource{loadFn: func(context.Context) (*residence.LookupSet, error) { return fullLookupSet(), nil }},
		&mockAttachmentStore{})

	_, err := svc.GetCase(context.Background(), 99)
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestSubmitStageUpdatePersistsResult(t *testing.T) {
	var saved *residence.Case
	repo := &mockRepo{
		getFn:  func(context.Context, int64) (*residence.Case, error) { return storedCase(), nil },
		saveFn: func(_ context.Context, c *residence.Case) error { saved = c; return nil },
	}
	svc := newCaseService(t, repo,
		&mockLookupSource{loadFn: func(context.Context) (*residence.LookupSet, error) { return fullLookupSet(), nil }},
		&mockAttachmentStore{})

	charge := residence.AccountRef(7)
	updated, err := svc.SubmitStageUpdate(context.Background(), 1, SubmitStageRequest{
		Stage: residence.StageOfferLetter,
		Fields: residence.OfferLetterFields{
			MBNumber: "MB-100", Company: "5", Cost: "1200", Currency: "AED",
		},
		Charge:       &charge,
		MarkComplete: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Progress)
	require.NotNil(t, saved)
	assert.Equal(t, 1, saved.Progress)
}

func TestSubmitStageUpdateRefreshesStaleLookups(t *testing.T) {
	// The first snapshot predates account 7; the store already knows it.
	// The service must refresh once and retry instead of rejecting.
	source := &mockLookupSource{}
	source.loadFn = func(context.Context) (*residence.LookupSet, error) {
		if source.loadCalls == 1 {
			return &residence.LookupSet{
				Accounts: []residence.ChargeEntity{{ID: 3, Name: "Main Account"}},
				LoadedAt: time.Now().UTC(),
			}, nil
		}
		return fullLookupSet(), nil
	}

	repo := &mockRepo{
		getFn:  func(context.Context, int64) (*residence.Case, error) { return storedCase(), nil },
		saveFn: func(context.Context, *residence.Case) error { return nil },
	}
	svc := newCaseService(t, repo, source, &mockAttachmentStore{})

	charge := residence.AccountRef(7)
	_, err := svc.SubmitStageUpdate(context.Background(), 1, SubmitStageRequest{
		Stage:  residence.StageOfferLetter,
		Charge: &charge,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, source.loadCalls, "expected init load plus one refresh")
}

func TestSubmitStageUpdateRetriesOnlyOnce(t *testing.T) {
	source := &mockLookupSource{
		loadFn: func(context.Context) (*residence.LookupSet, error) {
			return &residence.LookupSet{LoadedAt: time.Now().UTC()}, nil
		},
	}
	repo := &mockRepo{
		getFn:  func(context.Context, int64) (*residence.Case, error) { return storedCase(), nil },
		saveFn: func(context.Context, *residence.Case) error { return nil },
	}
	svc := newCaseService(t, repo, source, &mockAttachmentStore{})

	charge := residence.AccountRef(7)
	_, err := svc.SubmitStageUpdate(context.Background(), 1, SubmitStageRequest{
		Stage:  residence.StageOfferLetter,
		Charge: &charge,
	})
	assert.ErrorIs(t, err, residence.ErrInvalidChargeEntity)
	assert.Equal(t, 2, source.loadCalls)
}

func TestSubmitStageUpdateStoresAttachmentAfterValidation(t *testing.T) {
	var saved *residence.Case
	repo := &mockRepo{
		getFn:  func(context.Context, int64) (*residence.Case, error) { return storedCase(), nil },
		saveFn: func(_ context.Context, c *residence.Case) error { saved = c; return nil },
	}
	store := &mockAttachmentStore{
		saveFn: func(caseID int64, field, filename string, _ []byte) (string, error) {
			assert.Equal(t, int64(1), caseID)
			assert.Equal(t, "offer_letter_doc", field)
			assert.Equal(t, "offer.pdf", filename)
			return "case_1/offer_letter_doc_abc.pdf", nil
		},
	}
	svc := newCaseService(t, repo,
		&mockLookupSource{loadFn: func(context.Context) (*residence.LookupSet, error) { return fullLookupSet(), nil }},
		store)

	_, err := svc.SubmitStageUpdate(context.Background(), 1, SubmitStageRequest{
		Stage:      residence.StageOfferLetter,
		Attachment: &Upload{Filename: "offer.pdf", Content: []byte("%PDF")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.saveCalls)
	require.NotNil(t, saved)
	rec := saved.RecordIfExists(residence.StageOfferLetter)
	require.NotNil(t, rec)
	assert.Equal(t, "case_1/offer_letter_doc_abc.pdf", rec.AttachmentRef)
}

func TestSubmitStageUpdateSkipsStorageOnRejection(t *testing.T) {
	repo := &mockRepo{
		getFn: func(context.Context, int64) (*residence.Case, error) {
			c := storedCase()
			c.Cancelled = true
			return c, nil
		},
	}
	store := &mockAttachmentStore{}
	svc := newCaseService(t, repo,
		&mockLookupSource{loadFn: func(context.Context) (*residence.LookupSet, error) { return fullLookupSet(), nil }},
		store)

	_, err := svc.SubmitStageUpdate(context.Background(), 1, SubmitStageRequest{
		Stage:      residence.StageOfferLetter,
		Attachment: &Upload{Filename: "offer.pdf", Content: []byte("%PDF")},
	})
	assert.ErrorIs(t, err, residence.ErrCaseTerminal)
	assert.Zero(t, store.saveCalls, "rejected update must not store the file")
}

func TestCancelCaseRequiresRemarks(t *testing.T) {
	svc := newCaseService(t, &mockRepo{},
		&mockLookupSource{loadFn: func(context.Context) (*residence.LookupSet, error) { return fullLookupSet(), nil }},
		&mockAttachmentStore{})

	_, err := svc.CancelCase(context.Background(), 1, 500, "  ")
	assert.ErrorIs(t, err, ErrRemarksRequired)
}

func TestCancelCase(t *testing.T) {
	var saved *residence.Case
	repo := &mockRepo{
		getFn:  func(context.Context, int64) (*residence.Case, error) { return storedCase(), nil },
		saveFn: func(_ context.Context, c *residence.Case) error { saved = c; return nil },
	}
	svc := newCaseService(t, repo,
		&mockLookupSource{loadFn: func(context.Context) (*residence.LookupSet, error) { return fullLookupSet(), nil }},
		&mockAttachmentStore{})

	cancelled, err := svc.CancelCase(context.Background(), 1, 500, "client withdrew")
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)
	assert.Equal(t, 500.0, cancelled.CancellationCharge)
	assert.Equal(t, "client withdrew", cancelled.CancellationRemarks)
	require.NotNil(t, saved)
}

func TestCancelCaseIdempotent(t *testing.T) {
	repo := &mockRepo{
		getFn: func(context.Context, int64) (*residence.Case, error) {
			c := storedCase()
			c.Cancelled = true
			c.CancellationRemarks = "already gone"
			return c, nil
		},
		saveFn: func(context.Context, *residence.Case) error {
			return errors.New("must not re-save a cancelled case")
		},
	}
	svc := newCaseService(t, repo,
		&mockLookupSource{loadFn: func(context.Context) (*residence.LookupSet, error) { return fullLookupSet(), nil }},
		&mockAttachmentStore{})

	c, err := svc.CancelCase(context.Background(), 1, 999, "second attempt")
	require.NoError(t, err)
	assert.Equal(t, "already gone", c.CancellationRemarks)
}
