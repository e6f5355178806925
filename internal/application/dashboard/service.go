package dashboard

import (
	"context"
	"sort"
	"time"

	"github.com/go-todo-api/internal/domain"
)

const todoListLimit = 50

// Chart colors for the priority breakdown, high to low.
var priorityColors = map[string]string{
	domain.PriorityHigh:   "#ef4444",
	domain.PriorityMedium: "#f59e0b",
	domain.PriorityLow:    "#10b981",
}

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type Service interface {
	Overview(ctx context.Context) (*domain.OverviewStats, error)
	PriorityBreakdown(ctx context.Context) ([]domain.PriorityItem, error)
	WeeklyActivity(ctx context.Context) ([]domain.WeeklyActivityItem, error)
	Todos(ctx context.Context) ([]domain.DashboardTodo, error)
	Users(ctx context.Context) ([]domain.DashboardUser, error)
}

type userStore interface {
	Scan(ctx context.Context) ([]domain.User, error)
}

type todoStore interface {
	Scan(ctx context.Context) ([]domain.Todo, error)
}

type service struct {
	userRepo userStore
	todoRepo todoStore
	now      func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	TodoRepo todoStore
	Now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{userRepo: deps.UserRepo, todoRepo: deps.TodoRepo, now: now}
}

func (s *service) Overview(ctx context.Context) (*domain.OverviewStats, error) {
	users, err := s.userRepo.Scan(ctx)
	if err != nil {
		return nil, err
	}
	todos, err := s.todoRepo.Scan(ctx)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, t := range todos {
		if t.Completed {
			completed++
		}
	}

	now := s.now().UTC()
	monthAgo := now.AddDate(0, 0, -30)
	twoMonthsAgo := now.AddDate(0, 0, -60)
	var recent, previous int
	for _, u := range users {
		switch {
		case u.CreatedAt.After(monthAgo):
			recent++
		case u.CreatedAt.After(twoMonthsAgo):
			previous++
		}
	}
	var growth float64
	switch {
	case previous > 0:
		growth = float64(recent-previous) / float64(previous) * 100
	case recent > 0:
		growth = 100
	}

	var completionRate float64
	if len(todos) > 0 {
		completionRate = float64(completed) / float64(len(todos)) * 100
	}

	return &domain.OverviewStats{
		TotalUsers:     len(users),
		TotalTodos:     len(todos),
		CompletedTodos: completed,
		PendingTodos:   len(todos) - completed,
		UserGrowth:     growth,
		CompletionRate: completionRate,
	}, nil
}

func (s *service) PriorityBreakdown(ctx context.Context) ([]domain.PriorityItem, error) {
	todos, err := s.todoRepo.Scan(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, t := range todos {
		counts[t.Priority]++
	}
	items := make([]domain.PriorityItem, 0, 3)
	for _, p := range []string{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		items = append(items, domain.PriorityItem{Name: p, Value: counts[p], Color: priorityColors[p]})
	}
	return items, nil
}

// WeeklyActivity buckets the last 7 days of activity by weekday, Sun first.
// A todo counts as completed activity on its UpdatedAt day when done.
func (s *service) WeeklyActivity(ctx context.Context) ([]domain.WeeklyActivityItem, error) {
	todos, err := s.todoRepo.Scan(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().UTC().AddDate(0, 0, -7)
	created := map[time.Weekday]int{}
	completed := map[time.Weekday]int{}
	for _, t := range todos {
		if t.CreatedAt.After(cutoff) {
			created[t.CreatedAt.UTC().Weekday()]++
		}
		if t.Completed && t.UpdatedAt.After(cutoff) {
			completed[t.UpdatedAt.UTC().Weekday()]++
		}
	}
	items := make([]domain.WeeklyActivityItem, 0, len(weekdays))
	for i, day := range weekdays {
		wd := time.Weekday(i)
		items = append(items, domain.WeeklyActivityItem{
			Day:       day,
			Completed: completed[wd],
			Created:   created[wd],
		})
	}
	return items, nil
}

func (s *service) Todos(ctx context.Context) ([]domain.DashboardTodo, error) {
	todos, err := s.todoRepo.Scan(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.Scan(ctx)
	if err != nil {
		return nil, err
	}
	emailByID := make(map[string]string, len(users))
	for _, u := range users {
		emailByID[u.UserID] = u.Email
	}

	sort.Slice(todos, func(i, j int) bool { return todos[i].CreatedAt.After(todos[j].CreatedAt) })
	if len(todos) > todoListLimit {
		todos = todos[:todoListLimit]
	}

	rows := make([]domain.DashboardTodo, 0, len(todos))
	for _, t := range todos {
		row := domain.DashboardTodo{
			TodoID:    t.TodoID,
			Title:     t.Title,
			Completed: t.Completed,
			Tags:      t.Tags,
			Priority:  t.Priority,
			UserEmail: emailByID[t.UserID],
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if t.DueDate != nil {
			row.DueDate = t.DueDate.UTC().Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *service) Users(ctx context.Context) ([]domain.DashboardUser, error) {
	users, err := s.userRepo.Scan(ctx)
	if err != nil {
		return nil, err
	}
	todos, err := s.todoRepo.Scan(ctx)
	if err != nil {
		return nil, err
	}

	type usage struct {
		total      int
		completed  int
		lastActive time.Time
	}
	byUser := map[string]*usage{}
	for _, t := range todos {
		u := byUser[t.UserID]
		if u == nil {
			u = &usage{}
			byUser[t.UserID] = u
		}
		u.total++
		if t.Completed {
			u.completed++
		}
		if t.UpdatedAt.After(u.lastActive) {
			u.lastActive = t.UpdatedAt
		}
	}

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })

	rows := make([]domain.DashboardUser, 0, len(users))
	for _, u := range users {
		row := domain.DashboardUser{
			UserID:     u.UserID,
			Email:      u.Email,
			Username:   u.Username,
			IsVerified: u.Verified(),
			JoinDate:   u.CreatedAt.UTC().Format("2006-01-02"),
		}
		if use := byUser[u.UserID]; use != nil {
			row.TodosCount = use.total
			row.CompletedTodos = use.completed
			row.LastActive = use.lastActive.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
