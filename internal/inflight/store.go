package inflight

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-decor-cartflow/internal/aws"
)

// DynamoGuard stores leases in DynamoDB so every API instance sees them.
// An expired lease can be taken over before DynamoDB's TTL sweep removes it.
type DynamoGuard struct {
	client    aws.DynamoDBAPI
	tableName string
	ttl       time.Duration
	nowFunc   func() time.Time
}

// NewDynamoGuard returns a guard over tableName (partition key lock_key).
// ttl bounds how long a crashed holder can block its session.
func NewDynamoGuard(client aws.DynamoDBAPI, tableName string, ttl time.Duration) *DynamoGuard {
	return &DynamoGuard{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		nowFunc:   time.Now,
	}
}

func (g *DynamoGuard) Acquire(ctx context.Context, key string) (string, bool, error) {
	now := g.nowFunc()
	rec := LockRecord{
		LockKey:   key,
		Owner:     uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl).Unix(),
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return "", false, fmt.Errorf("marshal lock: %w", err)
	}

	_, err = g.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &g.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(lock_key) OR expires_at < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("put item: %w", err)
	}
	return rec.Owner, true, nil
}

func (g *DynamoGuard) Release(ctx context.Context, key, token string) error {
	_, err := g.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &g.tableName,
		Key: map[string]types.AttributeValue{
			"lock_key": &types.AttributeValueMemberS{Value: key},
		},
		ConditionExpression: awsString("#o = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#o": "owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: token},
		},
	})
	if err != nil {
		// expired and taken over by someone else: nothing left to release
		if isConditionFailed(err) {
			return nil
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func awsString(s string) *string { return &s }
