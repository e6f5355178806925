package domain

import "time"

// VerificationToken is an email verification token. The token value itself is
// the partition key and is stored in plain form.
// ExpiresAt doubles as the DynamoDB TTL attribute (Unix seconds).
type VerificationToken struct {
	Token     string `json:"token" dynamodbav:"token"`
	Email     string `json:"email" dynamodbav:"email"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
	Attempts  int    `json:"attempts" dynamodbav:"attempts"` // email send count
	CreatedAt int64  `json:"created_at" dynamodbav:"created_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *VerificationToken) Expired(now time.Time) bool {
	return t.ExpiresAt < now.Unix()
}

// PasswordResetToken stores only the bcrypt hash of the raw reset secret.
// The raw value never touches the database.
type PasswordResetToken struct {
	TokenID   string `json:"id" dynamodbav:"token_id"`
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	TokenHash string `json:"-" dynamodbav:"token_hash"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
	Used      bool   `json:"used" dynamodbav:"used"`
	CreatedAt int64  `json:"created_at" dynamodbav:"created_at"`
}

func (t *PasswordResetToken) Expired(now time.Time) bool {
	return t.ExpiresAt < now.Unix()
}
