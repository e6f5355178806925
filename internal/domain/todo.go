package domain

import "time"

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Todo struct {
	TodoID      string     `json:"id" dynamodbav:"todo_id"`
	UserID      string     `json:"user_id" dynamodbav:"user_id"`
	Title       string     `json:"title" dynamodbav:"title"`
	Description string     `json:"description" dynamodbav:"description"`
	Completed   bool       `json:"completed" dynamodbav:"completed"`
	DueDate     *time.Time `json:"due_date" dynamodbav:"due_date"`
	Tags        []string   `json:"tags" dynamodbav:"tags"`
	Priority    string     `json:"priority" dynamodbav:"priority"`
	CreatedAt   time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateTodoRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	DueDate     *string  `json:"due_date"` // expected format: YYYY-MM-DD
	Tags        []string `json:"tags" validate:"max=10,dive,max=32"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high"`
}

type UpdateTodoRequest struct {
	Title       *string   `json:"title" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Completed   *bool     `json:"completed"`
	DueDate     *string   `json:"due_date"` // expected format: YYYY-MM-DD
	Tags        *[]string `json:"tags" validate:"omitempty,max=10,dive,max=32"`
	Priority    *string   `json:"priority" validate:"omitempty,oneof=low medium high"`
}
