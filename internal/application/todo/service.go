package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-todo-api/internal/domain"
	"github.com/go-todo-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldCompleted   = "completed"
	fieldDueDate     = "due_date"
	fieldTags        = "tags"
	fieldPriority    = "priority"
)

type Service interface {
	Create(ctx context.Context, userID string, req domain.CreateTodoRequest) (*domain.Todo, error)
	List(ctx context.Context, userID string) ([]domain.Todo, error)
	Get(ctx context.Context, userID, todoID string) (*domain.Todo, error)
	Update(ctx context.Context, userID, todoID string, req domain.UpdateTodoRequest) (*domain.Todo, error)
	Delete(ctx context.Context, userID, todoID string) error
}

type todoStore interface {
	Put(ctx context.Context, t *domain.Todo) error
	Get(ctx context.Context, todoID string) (*domain.Todo, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Todo, error)
	Update(ctx context.Context, todoID string, updates map[string]interface{}) error
	Delete(ctx context.Context, todoID string) error
}

type service struct {
	repo todoStore
}

type ServiceDeps struct {
	TodoRepo todoStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.TodoRepo}
}

func parseDueDate(s string) (*time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("due_date must be in YYYY-MM-DD format: %w", domain.ErrBadRequest)
	}
	return &t, nil
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreateTodoRequest) (*domain.Todo, error) {
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		var err error
		if dueDate, err = parseDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	now := time.Now().UTC()
	t := &domain.Todo{
		TodoID:      id.New(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		Tags:        tags,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) List(ctx context.Context, userID string) ([]domain.Todo, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns the todo only when it belongs to userID. A todo owned by
// someone else reads as not-found, never as forbidden.
func (s *service) Get(ctx context.Context, userID, todoID string) (*domain.Todo, error) {
	t, err := s.repo.Get(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, fmt.Errorf("todo not found: %w", domain.ErrNotFound)
	}
	return t, nil
}

func (s *service) Update(ctx context.Context, userID, todoID string, req domain.UpdateTodoRequest) (*domain.Todo, error) {
	if _, err := s.Get(ctx, userID, todoID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates[fieldTitle] = *req.Title
	}
	if req.Description != nil {
		updates[fieldDescription] = *req.Description
	}
	if req.Completed != nil {
		updates[fieldCompleted] = *req.Completed
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			updates[fieldDueDate] = nil
		} else {
			t, err := parseDueDate(*req.DueDate)
			if err != nil {
				return nil, err
			}
			updates[fieldDueDate] = *t
		}
	}
	if req.Tags != nil {
		updates[fieldTags] = *req.Tags
	}
	if req.Priority != nil {
		updates[fieldPriority] = *req.Priority
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, todoID)
	}
	if err := s.repo.Update(ctx, todoID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, todoID)
}

func (s *service) Delete(ctx context.Context, userID, todoID string) error {
	if _, err := s.Get(ctx, userID, todoID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, todoID)
}
