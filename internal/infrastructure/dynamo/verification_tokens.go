package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-todo-api/internal/domain"
)

// VerificationTokenRepo manages email verification tokens.
// PK: token (the plain value, so consumption is a direct key lookup).
// GSI email-index supports purging all tokens issued to one address.
// DynamoDB TTL on expires_at sweeps stale rows passively.
type VerificationTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationTokenRepo(client *dynamodb.Client, tableName string) *VerificationTokenRepo {
	return &VerificationTokenRepo{client: client, tableName: tableName}
}

func (r *VerificationTokenRepo) Put(ctx context.Context, t *domain.VerificationToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal verification token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VerificationTokenRepo) Get(ctx context.Context, token string) (*domain.VerificationToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification token not found: %w", domain.ErrNotFound)
	}
	var t domain.VerificationToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *VerificationTokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	return err
}

// DeleteAllForEmail removes every token issued to email. Called on reissuance
// so at most one live token per subject exists afterwards.
func (r *VerificationTokenRepo) DeleteAllForEmail(ctx context.Context, email string) error {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("email-index"),
		KeyConditionExpression:    aws.String("email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: email}},
		ProjectionExpression:      aws.String("#t"),
		ExpressionAttributeNames:  map[string]string{"#t": "token"},
	})
	if err != nil {
		return err
	}
	for _, item := range out.Items {
		tok, ok := item["token"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if err := r.Delete(ctx, tok.Value); err != nil {
			return err
		}
	}
	return nil
}
