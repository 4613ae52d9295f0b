// Package dynamodb stores lead documents in a DynamoDB table.
//
// Table layout: partition key "collection", sort key "id", and a global
// secondary index on "email_lower" (partition) + "collection" (sort) used for
// the dedup lookup. The record body is kept as a JSON string attribute.
package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

// Config selects the table and, for local development, an endpoint override.
type Config struct {
	Region     string
	Table      string
	EmailIndex string
	Endpoint   string
}

// API is the subset of *dynamodb.Client the store calls.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DocumentStore appends lead documents to one DynamoDB table.
type DocumentStore struct {
	api        API
	table      string
	emailIndex string
	idGen      lead.IDGenerator
	clock      lead.Clock
}

// NewDocumentStore loads the default AWS credential chain and builds a client.
func NewDocumentStore(ctx context.Context, cfg Config, idGen lead.IDGenerator, clock lead.Clock) (*DocumentStore, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDocumentStoreWithAPI(client, cfg, idGen, clock)
}

// NewDocumentStoreWithAPI constructs a store around an existing client (primarily for testing).
func NewDocumentStoreWithAPI(api API, cfg Config, idGen lead.IDGenerator, clock lead.Clock) (*DocumentStore, error) {
	if api == nil {
		return nil, fmt.Errorf("dynamodb client is required")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("dynamodb.table is required")
	}
	index := cfg.EmailIndex
	if index == "" {
		index = "email-index"
	}
	return &DocumentStore{api: api, table: cfg.Table, emailIndex: index, idGen: idGen, clock: clock}, nil
}

// Append writes doc as a new item. The condition keeps items write-once.
func (s *DocumentStore) Append(ctx context.Context, doc lead.Document) (lead.Receipt, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return lead.Receipt{}, fmt.Errorf("generate document id: %w", err)
	}
	body, err := json.Marshal(doc.Fields)
	if err != nil {
		return lead.Receipt{}, &lead.WriteError{Code: "encode", Err: fmt.Errorf("marshal document: %w", err)}
	}
	created := s.clock.Now().UTC()

	item := map[string]types.AttributeValue{
		"collection":  &types.AttributeValueMemberS{Value: doc.Collection},
		"id":          &types.AttributeValueMemberS{Value: id},
		"kind":        &types.AttributeValueMemberS{Value: string(doc.Kind)},
		"source":      &types.AttributeValueMemberS{Value: doc.Source},
		"email":       &types.AttributeValueMemberS{Value: doc.Email},
		"email_lower": &types.AttributeValueMemberS{Value: strings.ToLower(doc.Email)},
		"document":    &types.AttributeValueMemberS{Value: string(body)},
		"created_at":  &types.AttributeValueMemberS{Value: created.Format(time.RFC3339Nano)},
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return lead.Receipt{}, classify("put item", err)
	}
	return lead.Receipt{ID: id, CreatedAt: created}, nil
}

// EmailExists queries the email index for collection.
func (s *DocumentStore) EmailExists(ctx context.Context, collection, email string) (bool, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.emailIndex),
		KeyConditionExpression: aws.String("email_lower = :e AND #c = :c"),
		ExpressionAttributeNames: map[string]string{
			"#c": "collection",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: strings.ToLower(email)},
			":c": &types.AttributeValueMemberS{Value: collection},
		},
		Select: types.SelectCount,
		Limit:  aws.Int32(1),
	})
	if err != nil {
		return false, classify("query email index", err)
	}
	return out.Count > 0, nil
}

// Ready describes the table.
func (s *DocumentStore) Ready(ctx context.Context) error {
	if _, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}); err != nil {
		return classify("describe table", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *DocumentStore) Close() error { return nil }

// transientCodes are service error codes that mean "try again later".
var transientCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"ThrottlingException":                    true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
}

func classify(op string, err error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return &lead.WriteError{Code: "ConditionalCheckFailed", Err: fmt.Errorf("%s: %w", op, err)}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && !transientCodes[apiErr.ErrorCode()] {
		return &lead.WriteError{Code: apiErr.ErrorCode(), Err: fmt.Errorf("%s: %w", op, err)}
	}
	return fmt.Errorf("%w: %s: %v", lead.ErrStorageUnavailable, op, err)
}
