package inflight

import (
	"context"
	"errors"
	"strconv"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock understands exactly the two conditional writes DynamoGuard issues.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	putCalls    int
	deleteCalls int
	err         error
}

func newSimpleMock() *simpleMock {
	return &simpleMock{table: map[string]map[string]types.AttributeValue{}}
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func numAttr(item map[string]types.AttributeValue, name string) int64 {
	if v, ok := item[name].(*types.AttributeValueMemberN); ok {
		n, _ := strconv.ParseInt(v.Value, 10, 64)
		return n
	}
	return 0
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.err != nil {
		return nil, m.err
	}
	k := strAttr(params.Item, "lock_key")
	if k == "" {
		return nil, errors.New("missing key")
	}
	if existing, ok := m.table[k]; ok {
		now := numAttr(params.ExpressionAttributeValues, ":now")
		if numAttr(existing, "expires_at") >= now {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.err != nil {
		return nil, m.err
	}
	k := strAttr(params.Key, "lock_key")
	existing, ok := m.table[k]
	if !ok || strAttr(existing, "owner") != strAttr(params.ExpressionAttributeValues, ":owner") {
		return nil, &types.ConditionalCheckFailedException{}
	}
	delete(m.table, k)
	return &dyn.DeleteItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	return nil, errors.New("not used by inflight")
}

func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return nil, errors.New("not used by inflight")
}
