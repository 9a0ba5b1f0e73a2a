package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/campus-chat-api/internal/domain"
)

// otpPurgeAfter is how long past expiry an abandoned request stays before DynamoDB TTL removes it.
const otpPurgeAfter = 24 * time.Hour

// otpItem is the stored shape of a domain.OTPRecord.
// expires_at is Unix milliseconds; purge_at is the TTL attribute (Unix seconds).
type otpItem struct {
	UserID    string `dynamodbav:"user_id"`
	CodeHash  string `dynamodbav:"code_hash"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
	PurgeAt   int64  `dynamodbav:"purge_at"`
	Attempts  int    `dynamodbav:"attempts"`
}

// OTPRepo stores pending email OTP requests, one item per user.
// PK: user_id
type OTPRepo struct {
	client    DB
	tableName string
}

func NewOTPRepo(client DB, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

// Put overwrites any pending request for the same user.
func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(otpItem{
		UserID:    rec.UserID,
		CodeHash:  rec.CodeHash,
		ExpiresAt: rec.ExpiresAt.UnixMilli(),
		PurgeAt:   rec.ExpiresAt.Add(otpPurgeAfter).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal otp request: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put otp request", err)
	}
	return nil
}

func (r *OTPRepo) Get(ctx context.Context, userID string) (*domain.OTPRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get otp request", err)
	}
	if out.Item == nil {
		return nil, domain.ErrNoPendingOTP
	}
	var it otpItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal otp request: %w", err)
	}
	return &domain.OTPRecord{
		UserID:    it.UserID,
		CodeHash:  it.CodeHash,
		ExpiresAt: time.UnixMilli(it.ExpiresAt).UTC(),
		Attempts:  it.Attempts,
	}, nil
}

func (r *OTPRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldUserID, userID),
	})
	if err != nil {
		return storeErr("delete otp request", err)
	}
	return nil
}

// DeleteIfMatch consumes the request only if it still carries codeHash.
// A request that was already consumed or re-issued yields domain.ErrNoPendingOTP.
func (r *OTPRepo) DeleteIfMatch(ctx context.Context, userID, codeHash string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldUserID, userID),
		ConditionExpression:      aws.String("#h = :h"),
		ExpressionAttributeNames: map[string]string{"#h": fieldCodeHash},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h": &types.AttributeValueMemberS{Value: codeHash},
		},
	})
	if isConditionFailed(err) {
		return domain.ErrNoPendingOTP
	}
	if err != nil {
		return storeErr("consume otp request", err)
	}
	return nil
}

// AddAttempt atomically bumps the attempt counter of the request still carrying
// codeHash and returns the new count.
func (r *OTPRepo) AddAttempt(ctx context.Context, userID, codeHash string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldUserID, userID),
		UpdateExpression:         aws.String("ADD #a :one"),
		ConditionExpression:      aws.String("#h = :h"),
		ExpressionAttributeNames: map[string]string{"#a": fieldAttempts, "#h": fieldCodeHash},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":h":   &types.AttributeValueMemberS{Value: codeHash},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if isConditionFailed(err) {
		return 0, domain.ErrNoPendingOTP
	}
	if err != nil {
		return 0, storeErr("count otp attempt", err)
	}
	var n int
	if err := attributevalue.Unmarshal(out.Attributes[fieldAttempts], &n); err != nil {
		return 0, fmt.Errorf("unmarshal otp attempts: %w", err)
	}
	return n, nil
}
