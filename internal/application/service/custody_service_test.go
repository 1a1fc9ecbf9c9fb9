package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/domain/residence"
	"github.com/tadbeer/visaflow/internal/metrics"
)

func newCustodyService(repo *mockRepo, store *mockAttachmentStore) *CustodyService {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	return NewCustodyService(repo, store, m, zap.NewNop())
}

// eligibleCase returns a stored case past the Emirates ID stage.
func eligibleCase() *residence.Case {
	c := storedCase()
	for n := residence.StageOfferLetter; n <= residence.StageEmiratesID; n++ {
		rec := c.Record(n)
		rec.Completed = true
	}
	c.RecomputeProgress()
	return c
}

func TestGetCustodyTasksRejectsUnknownStatus(t *testing.T) {
	svc := newCustodyService(&mockRepo{}, &mockAttachmentStore{})
	_, err := svc.GetCustodyTasks(context.Background(), residence.CustodyStatus("LOST"))
	assert.Error(t, err)
}

func TestGetCustodyTasks(t *testing.T) {
	repo := &mockRepo{
		listByCustodyFn: func(_ context.Context, status residence.CustodyStatus) ([]*residence.Case, error) {
			assert.Equal(t, residence.CustodyPending, status)
			return []*residence.Case{eligibleCase()}, nil
		},
	}
	svc := newCustodyService(repo, &mockAttachmentStore{})

	cases, err := svc.GetCustodyTasks(context.Background(), residence.CustodyPending)
	require.NoError(t, err)
	assert.Len(t, cases, 1)
}

func TestSubmitCustodyUpdateCaseNotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(context.Context, int64) (*residence.Case, error) { return nil, nil },
	}
	svc := newCustodyService(repo, &mockAttachmentStore{})

	_, err := svc.SubmitCustodyUpdate(context.Background(), 5, SubmitCustodyRequest{
		Target: residence.CustodyReceived,
	})
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestSubmitCustodyUpdatePersistsResult(t *testing.T) {
	var saved *residence.Case
	repo := &mockRepo{
		getFn:  func(context.Context, int64) (*residence.Case, error) { return eligibleCase(), nil },
		saveFn: func(_ context.Context, c *residence.Case) error { saved = c; return nil },
	}
	svc := newCustodyService(repo, &mockAttachmentStore{})

	updated, err := svc.SubmitCustodyUpdate(context.Background(), 1, SubmitCustodyRequest{
		Target:      residence.CustodyReceived,
		CardNumber:  "784-1988-1234567-1",
		CardExpiry:  "2028-02-15",
		HolderName:  "Amira Hassan",
		DateOfBirth: "1988-06-12",
	})
	require.NoError(t, err)
	assert.Equal(t, residence.CustodyReceived, updated.CustodyStatus())
	require.NotNil(t, saved)
	assert.Equal(t, residence.CustodyReceived, saved.CustodyStatus())
}

func TestSubmitCustodyUpdateStoresCardImages(t *testing.T) {
	fields := make([]string, 0, 2)
	repo := &mockRepo{
		getFn:  func(context.Context, int64) (*residence.Case, error) { return eligibleCase(), nil },
		saveFn: func(context.Context, *residence.Case) error { return nil },
	}
	store := &mockAttachmentStore{
		saveFn: func(_ int64, field, _ string, _ []byte) (string, error) {
			fields = append(fields, field)
			return "case_1/" + field + ".jpg", nil
		},
	}
	svc := newCustodyService(repo, store)

	updated, err := svc.SubmitCustodyUpdate(context.Background(), 1, SubmitCustodyRequest{
		Target:      residence.CustodyReceived,
		CardNumber:  "784-1988-1234567-1",
		CardExpiry:  "2028-02-15",
		HolderName:  "Amira Hassan",
		DateOfBirth: "1988-06-12",
		FrontImage:  &Upload{Filename: "front.jpg", Content: []byte{0xFF}},
		BackImage:   &Upload{Filename: "back.jpg", Content: []byte{0xFF}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"card_front", "card_back"}, fields)
	assert.Equal(t, "case_1/card_front.jpg", updated.Custody.FrontImageRef)
	assert.Equal(t, "case_1/card_back.jpg", updated.Custody.BackImageRef)
}

func TestSubmitCustodyUpdateRejectsIneligibleCase(t *testing.T) {
	repo := &mockRepo{
		getFn: func(context.Context, int64) (*residence.Case, error) { return storedCase(), nil },
	}
	store := &mockAttachmentStore{}
	svc := newCustodyService(repo, store)

	_, err := svc.SubmitCustodyUpdate(context.Background(), 1, SubmitCustodyRequest{
		Target:      residence.CustodyReceived,
		CardNumber:  "784-1988-1234567-1",
		CardExpiry:  "2028-02-15",
		HolderName:  "Amira Hassan",
		DateOfBirth: "1988-06-12",
	})
	assert.ErrorIs(t, err, residence.ErrPriorStageIncomplete)
	assert.Zero(t, store.saveCalls)
}
