package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocuments(t *testing.T) {
	docs := Documents()
	require.Len(t, docs, 13)

	seen := map[string]bool{}
	for _, doc := range docs {
		require.NoError(t, doc.Validate(), "document %s", doc.ID)
		assert.False(t, seen[doc.ID], "duplicate document id %s", doc.ID)
		seen[doc.ID] = true
		assert.NotEmpty(t, doc.Source, "document %s has no source", doc.ID)
	}

	assert.True(t, seen["doc_001"])
	assert.True(t, seen["personal_loan_guide"])
}

func TestDocuments_FreshCopies(t *testing.T) {
	first := Documents()
	first[0].Title = "mutated"

	second := Documents()
	assert.NotEqual(t, "mutated", second[0].Title)
}
