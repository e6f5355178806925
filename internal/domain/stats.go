package domain

// OverviewStats summarises usage across all users for the admin dashboard.
type OverviewStats struct {
	TotalUsers     int     `json:"totalUsers"`
	TotalTodos     int     `json:"totalTodos"`
	CompletedTodos int     `json:"completedTodos"`
	PendingTodos   int     `json:"pendingTodos"`
	UserGrowth     float64 `json:"userGrowth"`     // % change in new sign-ups, last 30d vs previous 30d
	CompletionRate float64 `json:"completionRate"` // % of todos completed
}

type PriorityItem struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

type WeeklyActivityItem struct {
	Day       string `json:"day"` // "Sun".."Sat"
	Completed int    `json:"completed"`
	Created   int    `json:"created"`
}

// DashboardTodo is the flattened todo row shown in the admin todo list.
type DashboardTodo struct {
	TodoID    string   `json:"id"`
	Title     string   `json:"title"`
	Completed bool     `json:"completed"`
	DueDate   string   `json:"due_date,omitempty"`
	Tags      []string `json:"tags"`
	Priority  string   `json:"priority"`
	UserEmail string   `json:"user"`
	CreatedAt string   `json:"created"`
}

// DashboardUser is the per-user usage row shown in the admin user list.
type DashboardUser struct {
	UserID         string `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	IsVerified     bool   `json:"isVerified"`
	TodosCount     int    `json:"todosCount"`
	CompletedTodos int    `json:"completedTodos"`
	LastActive     string `json:"lastActive"`
	JoinDate       string `json:"joinDate"`
}
