package expiration

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// DynamoStore persists warning records in DynamoDB so restarts do not
// re-warn about objects already handled. Items expire on their own via
// TTL shortly after the object itself would have been deleted.
type DynamoStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
	ttl       time.Duration
}

type dynamoItem struct {
	ObjectKey string `dynamodbav:"object_key"`
	Epoch     string `dynamodbav:"epoch"`
	WarnedAt  string `dynamodbav:"warned_at"`
	TTL       int64  `dynamodbav:"ttl"`
}

func NewDynamoStore(ctx context.Context, sess *session.Session, tableName string, recordTTL time.Duration) (*DynamoStore, error) {
	client := dynamodb.New(sess)

	store := &DynamoStore{
		client:    client,
		tableName: tableName,
		ttl:       recordTTL,
	}

	if err := store.createTableIfNotExists(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *DynamoStore) Seen(ctx context.Context, key, epoch string) (bool, error) {
	out, err := s.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"object_key": {S: aws.String(key)},
			"epoch":      {S: aws.String(epoch)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get warning record: %w", err)
	}
	return len(out.Item) > 0, nil
}

func (s *DynamoStore) Record(ctx context.Context, rec models.ExpirationWarningRecord) error {
	item := dynamoItem{
		ObjectKey: rec.Key,
		Epoch:     rec.Epoch,
		WarnedAt:  rec.WarnedAt.UTC().Format(time.RFC3339),
		TTL:       time.Now().Add(s.ttl).Unix(),
	}

	av, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal warning record: %w", err)
	}

	_, err = s.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put warning record: %w", err)
	}
	return nil
}

func (s *DynamoStore) createTableIfNotExists(ctx context.Context) error {
	existing, err := s.client.ListTablesWithContext(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return fmt.Errorf("failed to list DynamoDB tables: %w", err)
	}

	for _, t := range existing.TableNames {
		if aws.StringValue(t) == s.tableName {
			return nil
		}
	}

	_, err = s.client.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.tableName),
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String("object_key"), AttributeType: aws.String("S")},
			{AttributeName: aws.String("epoch"), AttributeType: aws.String("S")},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: aws.String("object_key"), KeyType: aws.String(dynamodb.KeyTypeHash)},
			{AttributeName: aws.String("epoch"), KeyType: aws.String(dynamodb.KeyTypeRange)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create DynamoDB table %s: %w", s.tableName, err)
	}
	return nil
}
