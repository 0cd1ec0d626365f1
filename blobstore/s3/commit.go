package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/metrigo/blobstore"
)

// pointerName is the one blob the commit store versions in DynamoDB.
// It matches the pointer file the catalog publishes.
const pointerName = "CURRENT"

// DDBClient is the subset of the DynamoDB API the commit store uses.
// *dynamodb.Client satisfies it.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore wraps a Store with DynamoDB-coordinated updates of the
// CURRENT pointer, so multiple writers can publish snapshot versions
// without losing commits. S3 alone cannot replace an object atomically;
// DynamoDB supplies the compare-and-swap.
//
// Every blob except CURRENT goes straight to S3. Reading CURRENT returns
// the most recently committed value; writing it appends a new version with
// a conditional put that fails with ErrConcurrentModification when another
// writer got there first.
//
// Table schema: partition key "base_uri" (S), sort key "version" (N), and
// a "target" (S) attribute holding the pointer content. Create it with:
//
//	aws dynamodb create-table \
//	  --table-name metrigo-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	store   *Store
	ddb     DDBClient
	table   string
	baseURI string
}

// NewCommitStore wraps store with commit coordination through the given
// DynamoDB table. baseURI names the store's location, conventionally
// "s3://bucket/prefix", and partitions the table between stores.
func NewCommitStore(store *Store, ddb DDBClient, table, baseURI string) *CommitStore {
	return &CommitStore{
		store:   store,
		ddb:     ddb,
		table:   table,
		baseURI: baseURI,
	}
}

// Open opens a blob for reading. Opening CURRENT reads the latest
// committed pointer from DynamoDB instead of S3.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != pointerName {
		return s.store.Open(ctx, name)
	}

	version, target, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}

	if version == 0 {
		return nil, blobstore.ErrNotFound
	}

	return &pointerBlob{content: []byte(target)}, nil
}

// Create starts a streamed upload. CURRENT cannot be streamed because the
// commit has to be a single conditional write.
func (s *CommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if name == pointerName {
		return nil, fmt.Errorf("s3: %s must be written with Put", pointerName)
	}

	return s.store.Create(ctx, name)
}

// Put writes a blob. Writing CURRENT commits a new version.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name == pointerName {
		return s.commit(ctx, string(data))
	}

	return s.store.Put(ctx, name, data)
}

// Delete removes a blob from S3. Committed versions are never deleted.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

// List returns the S3 blob names under the given prefix, sorted. CURRENT
// lives in DynamoDB and is not listed.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.store.List(ctx, prefix)
}

// latest returns the newest committed version and its pointer content.
// Version 0 means nothing has been committed yet.
func (s *CommitStore) latest(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query commit table: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]

	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: commit item has no version attribute")
	}

	targetAttr, ok := item["target"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: commit item has no target attribute")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse commit version: %w", err)
	}

	return version, targetAttr.Value, nil
}

// commit appends version latest+1 pointing at target. The conditional
// write guarantees exactly one writer wins each version.
func (s *CommitStore) commit(ctx context.Context, target string) error {
	version, _, err := s.latest(ctx)
	if err != nil {
		return err
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: s.baseURI},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(version+1, 10)},
			"target":   &types.AttributeValueMemberS{Value: target},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}

		return fmt.Errorf("commit version %d: %w", version+1, err)
	}

	return nil
}

// pointerBlob serves the CURRENT content read from DynamoDB.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Close() error {
	return nil
}

func (b *pointerBlob) Size() int64 {
	return int64(len(b.content))
}

func (b *pointerBlob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errInvalidOffset
	}

	if off >= int64(len(b.content)) {
		return 0, io.EOF
	}

	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

var _ blobstore.Store = (*CommitStore)(nil)
