package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/stretchr/testify/require"
)

func TestSearchRepository_Search(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(db)

	letter := testDocument("d1")
	letter.Category = document.CategoryIncomingLetter
	letter.Title = "Invitation to district sports day"
	letter.OriginMeta = map[string]string{"sender": "Provincial Education Office"}
	require.NoError(t, repo.Create(ctx, "tenant1", letter))

	proposal := testDocument("d2")
	proposal.Title = "Sports equipment purchase"
	require.NoError(t, repo.Create(ctx, "tenant1", proposal))

	other := testDocument("d3")
	other.Title = "Sports field repair"
	require.NoError(t, repo.Create(ctx, "tenant2", other))

	searchRepo := NewSearchRepository(db)
	results, err := searchRepo.Search(ctx, "tenant1", "sports", document.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	results, err = searchRepo.Search(ctx, "tenant1", "provincial", document.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "d1", results[0].Document.ID)

	results, err = searchRepo.Search(ctx, "tenant1", "sports", document.SearchOptions{
		Categories: []document.Category{document.CategoryInternalProposal},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "d2", results[0].Document.ID)
}
