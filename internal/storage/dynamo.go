package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/go-decor-cartflow/internal/aws"
)

// entry is one key in the cart sessions table.
type entry struct {
	StorageKey string    `dynamodbav:"storage_key"` // PK
	Value      string    `dynamodbav:"value"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
	ExpiresAt  int64     `dynamodbav:"expires_at,omitempty"` // TTL epoch seconds
}

// Dynamo keeps each key as one item of a DynamoDB table with partition key storage_key.
type Dynamo struct {
	client    aws.DynamoDBAPI
	tableName string
	ttl       time.Duration
	nowFunc   func() time.Time
}

func NewDynamo(client aws.DynamoDBAPI, tableName string, ttl time.Duration) *Dynamo {
	return &Dynamo{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		nowFunc:   time.Now,
	}
}

func (d *Dynamo) key(k string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"storage_key": &types.AttributeValueMemberS{Value: k},
	}
}

func (d *Dynamo) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := d.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &d.tableName,
		Key:            d.key(key),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return "", false, nil
	}
	var e entry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return "", false, fmt.Errorf("unmarshal entry: %w", err)
	}
	// TTL deletion lags; treat an expired item as gone
	if e.ExpiresAt > 0 && e.ExpiresAt < d.nowFunc().Unix() {
		return "", false, nil
	}
	return e.Value, true, nil
}

func (d *Dynamo) Set(ctx context.Context, key, value string) error {
	now := d.nowFunc()
	e := entry{StorageKey: key, Value: value, UpdatedAt: now}
	if d.ttl > 0 {
		e.ExpiresAt = now.Add(d.ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if _, err := d.client.PutItem(ctx, &dyn.PutItemInput{TableName: &d.tableName, Item: item}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func (d *Dynamo) Delete(ctx context.Context, key string) error {
	if _, err := d.client.DeleteItem(ctx, &dyn.DeleteItemInput{TableName: &d.tableName, Key: d.key(key)}); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func awsBool(b bool) *bool { return &b }
