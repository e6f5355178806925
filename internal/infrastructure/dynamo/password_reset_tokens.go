package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-todo-api/internal/domain"
)

// PasswordResetTokenRepo manages password reset tokens. Only the bcrypt hash
// of the raw secret is stored, so consumption scans the live candidates and
// hash-verifies each one. PK: token_id. GSI user_id-index supports purging
// all tokens for one user. DynamoDB TTL on expires_at sweeps stale rows.
type PasswordResetTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPasswordResetTokenRepo(client *dynamodb.Client, tableName string) *PasswordResetTokenRepo {
	return &PasswordResetTokenRepo{client: client, tableName: tableName}
}

func (r *PasswordResetTokenRepo) Put(ctx context.Context, t *domain.PasswordResetToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal reset token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ScanLive returns all unused, unexpired reset tokens. Live cardinality is
// expected to be tiny (one per user with an in-flight reset), so a filtered
// scan is acceptable here.
func (r *PasswordResetTokenRepo) ScanLive(ctx context.Context, now time.Time) ([]domain.PasswordResetToken, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("used = :f AND expires_at > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		return nil, err
	}
	var tokens []domain.PasswordResetToken
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// MarkUsed flips the used flag. Done in the same operation window as the
// password update so a consumed token is never observed live.
func (r *PasswordResetTokenRepo) MarkUsed(ctx context.Context, tokenID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldUsed: true})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("token_id", tokenID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// DeleteAllForUser removes every reset token belonging to userID, whichever
// of them was consumed.
func (r *PasswordResetTokenRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("user_id-index"),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
		ProjectionExpression:      aws.String("token_id"),
	})
	if err != nil {
		return err
	}
	for _, item := range out.Items {
		id, ok := item["token_id"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("token_id", id.Value),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
