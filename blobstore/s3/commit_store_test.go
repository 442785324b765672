package s3

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brepkit/topogo/blobstore"
)

// fakeDDB is an in-memory DDBClient covering the single-partition access
// pattern CommitStore uses.
type fakeDDB struct {
	items   []map[string]types.AttributeValue
	failPut error
}

func (f *fakeDDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	f.items = append(f.items, params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDB) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if len(f.items) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	// ScanIndexForward=false with Limit=1: newest item only. Items are
	// appended in version order, so the last one is newest.
	return &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{f.items[len(f.items)-1]},
	}, nil
}

func newTestCommitStore(ddb DDBClient) *CommitStore {
	return NewCommitStore(nil, ddb, "topogo-commits", "s3://bucket/prefix")
}

func TestCommitStoreCurrentPointer(t *testing.T) {
	ddb := &fakeDDB{}
	cs := newTestCommitStore(ddb)
	ctx := context.Background()

	t.Run("missing before first commit", func(t *testing.T) {
		_, err := cs.Open(ctx, CurrentPointer)
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("commit then read back", func(t *testing.T) {
		require.NoError(t, cs.Put(ctx, CurrentPointer, []byte("registry-v1.tgs")))

		blob, err := cs.Open(ctx, CurrentPointer)
		require.NoError(t, err)
		defer blob.Close()
		data, err := io.ReadAll(blob)
		require.NoError(t, err)
		assert.Equal(t, "registry-v1.tgs", string(data))
	})

	t.Run("versions increase monotonically", func(t *testing.T) {
		require.NoError(t, cs.Put(ctx, CurrentPointer, []byte("registry-v2.tgs")))
		require.Len(t, ddb.items, 2)

		v := ddb.items[1]["version"].(*types.AttributeValueMemberN)
		assert.Equal(t, "2", v.Value)

		blob, err := cs.Open(ctx, CurrentPointer)
		require.NoError(t, err)
		defer blob.Close()
		data, err := io.ReadAll(blob)
		require.NoError(t, err)
		assert.Equal(t, "registry-v2.tgs", string(data))
	})
}

func TestCommitStoreConcurrentModification(t *testing.T) {
	ddb := &fakeDDB{failPut: &types.ConditionalCheckFailedException{}}
	cs := newTestCommitStore(ddb)

	err := cs.Put(context.Background(), CurrentPointer, []byte("registry-v1.tgs"))
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestCommitStorePutErrorPassthrough(t *testing.T) {
	ddb := &fakeDDB{failPut: fmt.Errorf("throttled")}
	cs := newTestCommitStore(ddb)

	err := cs.Put(context.Background(), CurrentPointer, []byte("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConcurrentModification)
}

func TestCommitStoreCreateRejectsPointer(t *testing.T) {
	cs := newTestCommitStore(&fakeDDB{})
	_, err := cs.Create(context.Background(), CurrentPointer)
	assert.Error(t, err)
}
