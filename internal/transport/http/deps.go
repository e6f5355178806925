package http

import (
	"github.com/go-todo-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-todo-api/internal/infrastructure/jwt"
	s3infra "github.com/go-todo-api/internal/infrastructure/s3"
	"github.com/go-todo-api/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	TodoRepo         *dynamo.TodoRepo
	VerificationRepo *dynamo.VerificationTokenRepo
	ResetRepo        *dynamo.PasswordResetTokenRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	JWTProvider      *jwtinfra.Provider
}
