package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestBlobRepository_PutGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewBlobRepository(db)

	blob := document.Blob{Kind: "signature", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	ref, err := repo.Put(ctx, "tenant1", blob)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "sha256:"))

	again, err := repo.Put(ctx, "tenant1", blob)
	require.NoError(t, err)
	require.Equal(t, ref, again)

	loaded, err := repo.Get(ctx, "tenant1", ref)
	require.NoError(t, err)
	require.Equal(t, blob.Data, loaded.Data)
	require.Equal(t, "image/png", loaded.ContentType)

	_, err = repo.Get(ctx, "tenant2", ref)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Put(ctx, "tenant1", document.Blob{Kind: "attachment"})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}
