package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// quoteItem is the mirrored shape of a quote. The table is keyed by pk (tenant) and sk (quote).
type quoteItem struct {
	PK            string `dynamodbav:"pk"`
	SK            string `dynamodbav:"sk"`
	AggregateID   string `dynamodbav:"aggregate_id"`
	ProductID     string `dynamodbav:"product_id"`
	QuoteType     string `dynamodbav:"quote_type"`
	WorkflowState string `dynamodbav:"workflow_state"`
	QuoteNumber   string `dynamodbav:"quote_number,omitempty"`
	PolicyNumber  string `dynamodbav:"policy_number,omitempty"`
	TotalPayable  string `dynamodbav:"total_payable"`
	CurrencyCode  string `dynamodbav:"currency_code"`
	Bindable      bool   `dynamodbav:"bindable"`
	CreatedAt     string `dynamodbav:"created_at"`
	LastUpdatedAt string `dynamodbav:"last_updated_at"`
}

type putItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// ReadModelMirror copies quote projections to DynamoDB for consumers outside the platform.
type ReadModelMirror struct {
	ddb       putItemAPI
	tableName string
}

var _ portsrepo.ReadModelMirror = (*ReadModelMirror)(nil)

func NewReadModelMirror(ddb putItemAPI, tableName string) *ReadModelMirror {
	return &ReadModelMirror{ddb: ddb, tableName: tableName}
}

// NewClient builds a DynamoDB client. Static local credentials are used when an endpoint override is set.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// MirrorQuotes writes each quote unless the table already holds a newer version.
func (m *ReadModelMirror) MirrorQuotes(ctx context.Context, quotes []domain.QuoteReadModel) error {
	var errs []error
	for _, q := range quotes {
		item := toQuoteItem(q)
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal quote %s: %w", q.QuoteID, err))
			continue
		}
		_, err = m.ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(m.tableName),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(#sk) OR #updated <= :updated"),
			ExpressionAttributeNames: map[string]string{
				"#sk":      "sk",
				"#updated": "last_updated_at",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":updated": &types.AttributeValueMemberS{Value: item.LastUpdatedAt},
			},
		})
		var stale *types.ConditionalCheckFailedException
		if err != nil && !errors.As(err, &stale) {
			errs = append(errs, fmt.Errorf("put quote %s: %w", q.QuoteID, err))
		}
	}
	return errors.Join(errs...)
}

func toQuoteItem(q domain.QuoteReadModel) quoteItem {
	item := quoteItem{
		PK:            "TENANT#" + q.TenantID,
		SK:            "QUOTE#" + q.QuoteID,
		AggregateID:   q.AggregateID,
		ProductID:     q.ProductID,
		QuoteType:     string(q.QuoteType),
		WorkflowState: string(q.WorkflowState),
		TotalPayable:  q.TotalPayable.String(),
		CurrencyCode:  q.CurrencyCode,
		Bindable:      q.Bindable,
		CreatedAt:     q.CreatedAt.UTC().Format(time.RFC3339Nano),
		LastUpdatedAt: q.LastUpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if q.QuoteNumber != nil {
		item.QuoteNumber = *q.QuoteNumber
	}
	if q.PolicyNumber != nil {
		item.PolicyNumber = *q.PolicyNumber
	}
	return item
}
