package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/campus-chat-api/internal/config"
	"go.uber.org/zap"
)

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist.
// Safe to call on every startup; tables that already exist are skipped.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables, log *zap.Logger) {
	createTable(ctx, client, log, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Users),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(fieldUserID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(fieldUsername), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldUserID), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexUsername, fieldUsername, ""),
		},
	})

	// One item per claimed username; the uniqueness authority for profile updates.
	createTable(ctx, client, log, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Usernames),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(fieldUsername), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldUsername), KeyType: types.KeyTypeHash},
		},
	})

	createTable(ctx, client, log, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.OTPRequests),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(fieldUserID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldUserID), KeyType: types.KeyTypeHash},
		},
	})
	// purge_at trails expires_at by a day; it only garbage-collects abandoned requests.
	enableTTL(ctx, client, log, tables.OTPRequests, fieldPurgeAt)
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, log *zap.Logger, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			log.Warn("could not create table", zap.String("table", *input.TableName), zap.Error(err))
		}
	} else {
		log.Info("created table", zap.String("table", *input.TableName))
	}
}

func enableTTL(ctx context.Context, client *dynamodb.Client, log *zap.Logger, tableName, ttlAttr string) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		log.Warn("could not enable TTL", zap.String("table", tableName), zap.Error(err))
	}
}
