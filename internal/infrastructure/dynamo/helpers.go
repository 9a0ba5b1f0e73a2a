package dynamo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/campus-chat-api/internal/domain"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// updateExpr is a SET expression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Keys are sorted so the generated expression is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (*updateExpr, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := &updateExpr{
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	parts := make([]string, 0, len(keys))
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		parts = append(parts, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	ue.Expr = "SET " + strings.Join(parts, ", ")
	return ue, nil
}

// bumpVersion appends "ADD version :one" to the expression.
func (ue *updateExpr) bumpVersion() {
	ue.Names["#ver"] = fieldVersion
	ue.Values[":one"] = &types.AttributeValueMemberN{Value: "1"}
	ue.Expr += " ADD #ver :one"
}

// isConditionFailed reports whether err is a failed ConditionExpression.
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// storeErr tags an SDK failure as ErrStoreUnavailable while keeping the cause.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
