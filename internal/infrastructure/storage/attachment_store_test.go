package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) *AttachmentStore {
	t.Helper()
	store, err := NewAttachmentStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestSaveAndResolve(t *testing.T) {
	store := newStore(t)

	ref, err := store.Save(1, "offer_letter_doc", "offer.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "case_1"+string(filepath.Separator)))
	assert.True(t, strings.HasSuffix(ref, ".pdf"))
	assert.Contains(t, ref, "offer_letter_doc_")

	path, err := store.Resolve(ref)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), content)
}

func TestSaveGeneratesUniqueRefs(t *testing.T) {
	store := newStore(t)

	ref1, err := store.Save(1, "card_front", "front.jpg", []byte{0xFF, 0xD8})
	require.NoError(t, err)
	ref2, err := store.Save(1, "card_front", "front.jpg", []byte{0xFF, 0xD8})
	require.NoError(t, err)
	assert.NotEqual(t, ref1, ref2)
}

func TestSaveNormalizesExtension(t *testing.T) {
	store := newStore(t)

	ref, err := store.Save(2, "evisa_doc", "SCAN.PDF", []byte("%PDF"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".pdf"))
}

func TestResolveRejectsEscapingRefs(t *testing.T) {
	store := newStore(t)

	for _, ref := range []string{
		"../outside.txt",
		"case_1/../../outside.txt",
		"..",
	} {
		_, err := store.Resolve(ref)
		assert.Errorf(t, err, "ref %q should be rejected", ref)
	}
}

func TestResolveAcceptsStoredRef(t *testing.T) {
	store := newStore(t)

	ref, err := store.Save(3, "visa_stamp_doc", "stamp.pdf", []byte("%PDF"))
	require.NoError(t, err)

	path, err := store.Resolve(ref)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, store.baseDir))
}
