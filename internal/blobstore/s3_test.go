package blobstore_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rpggio/saraban/internal/blobstore"
	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/repository"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Put(t *testing.T) {
	fake := &fakeS3{}
	store := blobstore.NewS3StoreWithClient(fake, "school-docs", "saraban")

	ref, err := store.Put(context.Background(), "school1", document.Blob{Kind: "signature", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "s3://school-docs/saraban/school1/signature/"))

	require.Len(t, fake.inputs, 1)
	require.Equal(t, "school-docs", aws.ToString(fake.inputs[0].Bucket))
	require.Equal(t, "image/png", aws.ToString(fake.inputs[0].ContentType))
	require.Equal(t, []byte("png"), fake.bodies[0])

	again, err := store.Put(context.Background(), "school1", document.Blob{Kind: "signature", Data: []byte("png")})
	require.NoError(t, err)
	require.Equal(t, ref, again)
}

func TestS3Store_PutErrors(t *testing.T) {
	store := blobstore.NewS3StoreWithClient(&fakeS3{err: errors.New("access denied")}, "b", "")

	_, err := store.Put(context.Background(), "school1", document.Blob{Kind: "attachment", Data: []byte("pdf")})
	require.ErrorContains(t, err, "access denied")

	_, err = store.Put(context.Background(), "school1", document.Blob{Kind: "attachment"})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := blobstore.NewS3Store(context.Background(), blobstore.S3Config{})
	require.Error(t, err)
}
