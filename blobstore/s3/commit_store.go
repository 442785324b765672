package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/brepkit/topogo/blobstore"
)

// CurrentPointer is the reserved blob name whose content is the name of the
// latest committed snapshot. Reads and writes of it go through DynamoDB.
const CurrentPointer = "CURRENT"

// ErrConcurrentModification is returned when a concurrent CURRENT commit is
// detected.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// DDBClient is the subset of DynamoDB operations CommitStore needs.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore wraps an S3 Store with a DynamoDB-backed pointer to the
// current snapshot. DynamoDB conditional writes supply the atomic
// compare-and-swap S3 lacks, so multiple writers can coordinate safely.
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 bucket/prefix
//   - Sort key: version (number) - monotonically increasing
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name topogo-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	s3Store   *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore creates a new S3+DynamoDB commit store.
// baseURI should be the "s3://bucket/prefix" form used as partition key.
func NewCommitStore(s3Store *Store, ddbClient DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		s3Store:   s3Store,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Open opens a blob for reading. For CurrentPointer the content comes from
// the latest committed DynamoDB entry.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name == CurrentPointer {
		version, snapshot, err := s.latestVersion(ctx)
		if err != nil {
			return nil, err
		}
		if version == 0 {
			return nil, blobstore.ErrNotFound
		}
		content := []byte(snapshot)
		return &pointerBlob{Reader: bytes.NewReader(content), size: int64(len(content))}, nil
	}
	return s.s3Store.Open(ctx, name)
}

// Put writes a blob. For CurrentPointer it performs a conditional DynamoDB
// commit of the snapshot name carried in data.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name == CurrentPointer {
		return s.commitVersion(ctx, string(data))
	}
	return s.s3Store.Put(ctx, name, data)
}

// Create creates a writable blob. CurrentPointer must go through Put.
func (s *CommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if name == CurrentPointer {
		return nil, fmt.Errorf("%s must be written with Put", CurrentPointer)
	}
	return s.s3Store.Create(ctx, name)
}

// Delete removes a blob from S3. Commit history in DynamoDB is never
// deleted through this store.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	return s.s3Store.Delete(ctx, name)
}

// List lists blobs with prefix.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.s3Store.List(ctx, prefix)
}

// latestVersion queries DynamoDB for the newest committed version.
func (s *CommitStore) latestVersion(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to query DynamoDB: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in DynamoDB")
	}
	snapAttr, ok := item["snapshot_name"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid snapshot_name attribute in DynamoDB")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("failed to parse version: %w", err)
	}
	return version, snapAttr.Value, nil
}

// commitVersion atomically commits a new snapshot pointer using a DynamoDB
// conditional write.
func (s *CommitStore) commitVersion(ctx context.Context, snapshotName string) error {
	currentVersion, _, err := s.latestVersion(ctx)
	if err != nil {
		return err
	}

	newVersion := currentVersion + 1
	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":      &types.AttributeValueMemberS{Value: s.baseURI},
			"version":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", newVersion)},
			"snapshot_name": &types.AttributeValueMemberS{Value: snapshotName},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("failed to commit version to DynamoDB: %w", err)
	}
	return nil
}

// pointerBlob serves the CURRENT pointer content from memory.
type pointerBlob struct {
	*bytes.Reader
	size int64
}

func (b *pointerBlob) Close() error { return nil }

func (b *pointerBlob) Size() int64 { return b.size }

var _ io.ReadCloser = (*pointerBlob)(nil)
