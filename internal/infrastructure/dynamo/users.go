package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/campus-chat-api/internal/domain"
)

const reasonConditionFailed = "ConditionalCheckFailed"

// UserRepo provides typed DynamoDB operations for the users table and
// the usernames claim table that backs username uniqueness.
type UserRepo struct {
	client         DB
	tableName      string
	usernamesTable string
}

func NewUserRepo(client DB, tableName, usernamesTable string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, usernamesTable: usernamesTable}
}

// Create writes a new user document. Fails with domain.ErrAlreadyExists if one is present.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldUserID},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return storeErr("create user", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get user", err)
	}
	if out.Item == nil {
		return nil, domain.ErrUserNotFound
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// FindByUsername looks up the holder of a (lower-cased) username through the GSI.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexUsername),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": fieldUsername},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: username}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, storeErr("query username", err)
	}
	if len(out.Items) == 0 {
		return nil, domain.ErrUserNotFound
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// Update applies a partial update to an existing user and bumps its version.
// Fails with domain.ErrUserNotFound if the document does not exist.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(withUpdatedAt(updates))
	if err != nil {
		return err
	}
	ue.bumpVersion()
	ue.Names["#pk"] = fieldUserID
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return storeErr("update user", err)
	}
	return nil
}

// UpdateProfile applies updates only if the stored version still equals current.Version.
// When updates change the username, the new name is claimed and the old claim released
// in the same transaction, so two users can never end up holding the same name.
func (r *UserRepo) UpdateProfile(ctx context.Context, current *domain.User, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(withUpdatedAt(updates))
	if err != nil {
		return err
	}
	ue.bumpVersion()
	ue.Names["#pk"] = fieldUserID
	cond := "attribute_exists(#pk) AND attribute_not_exists(#ver)"
	if current.Version > 0 {
		ue.Values[":expected"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current.Version, 10)}
		cond = "attribute_exists(#pk) AND #ver = :expected"
	}
	update := &types.Update{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, current.UserID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}

	newName, _ := updates[fieldUsername].(string)
	oldName := current.CurrentUsername()
	if newName == "" || newName == oldName {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 update.TableName,
			Key:                       update.Key,
			UpdateExpression:          update.UpdateExpression,
			ConditionExpression:       update.ConditionExpression,
			ExpressionAttributeNames:  update.ExpressionAttributeNames,
			ExpressionAttributeValues: update.ExpressionAttributeValues,
		})
		if isConditionFailed(err) {
			return domain.ErrConcurrentUpdate
		}
		if err != nil {
			return storeErr("update profile", err)
		}
		return nil
	}

	items := []types.TransactWriteItem{
		{Update: update},
		{Put: r.claim(newName, current.UserID)},
	}
	if oldName != "" {
		items = append(items, types.TransactWriteItem{Delete: r.release(oldName, current.UserID)})
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		reasons := tce.CancellationReasons
		switch {
		case failedAt(reasons, 1):
			return fmt.Errorf("%q: %w", newName, domain.ErrUsernameTaken)
		case failedAt(reasons, 0), failedAt(reasons, 2):
			return domain.ErrConcurrentUpdate
		}
	}
	return storeErr("update profile", err)
}

// claim puts username -> userID unless another user already holds the name.
func (r *UserRepo) claim(username, userID string) *types.Put {
	return &types.Put{
		TableName: aws.String(r.usernamesTable),
		Item: map[string]types.AttributeValue{
			fieldUsername: &types.AttributeValueMemberS{Value: username},
			fieldUserID:   &types.AttributeValueMemberS{Value: userID},
			"claimed_at":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression:       aws.String("attribute_not_exists(#u) OR #owner = :uid"),
		ExpressionAttributeNames:  map[string]string{"#u": fieldUsername, "#owner": fieldUserID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":uid": &types.AttributeValueMemberS{Value: userID}},
	}
}

// release deletes the claim on username if userID still owns it.
func (r *UserRepo) release(username, userID string) *types.Delete {
	return &types.Delete{
		TableName:                 aws.String(r.usernamesTable),
		Key:                       strKey(fieldUsername, username),
		ConditionExpression:       aws.String("attribute_not_exists(#u) OR #owner = :uid"),
		ExpressionAttributeNames:  map[string]string{"#u": fieldUsername, "#owner": fieldUserID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":uid": &types.AttributeValueMemberS{Value: userID}},
	}
}

func failedAt(reasons []types.CancellationReason, i int) bool {
	return i < len(reasons) && aws.ToString(reasons[i].Code) == reasonConditionFailed
}

// withUpdatedAt copies updates and stamps updated_at, leaving the caller's map untouched.
func withUpdatedAt(updates map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		out[k] = v
	}
	out[fieldUpdatedAt] = time.Now().UTC()
	return out
}
