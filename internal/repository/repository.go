package repository

import (
	"context"

	"github.com/yukikurage/umsebenzi/internal/models"
)

// Store groups the repositories that share one database handle. Inside
// Transaction every repository returned by the nested Store runs on the
// same transaction.
type Store interface {
	Tasks() TaskRepository
	Projects() ProjectRepository
	Users() UserRepository

	// Transaction runs fn in a database transaction. A non-nil error from fn
	// rolls back every write made through the nested Store.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a task without touching its associations
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// FindByCode finds a task by its public code
	FindByCode(ctx context.Context, code string, preload ...string) (*models.Task, error)

	// FindLatestByProject returns the task with the greatest id in a project,
	// or nil when the project has no tasks
	FindLatestByProject(ctx context.Context, projectID uint64) (*models.Task, error)

	// ListByProject returns every task of a project ordered by id
	ListByProject(ctx context.Context, projectID uint64) ([]models.Task, error)

	// UpdateCode rewrites the code column of a single task
	UpdateCode(ctx context.Context, taskID uint64, code string) error

	// CountChildren counts tasks whose parent is the given task
	CountChildren(ctx context.Context, taskID uint64) (int64, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update writes the editable columns of a task. Code and project are
	// left untouched.
	Update(ctx context.Context, task *models.Task) error

	// UpdateStatus rewrites the status column of a single task
	UpdateStatus(ctx context.Context, taskID uint64, status models.TaskStatus) error

	// Delete removes a task together with its subtasks
	Delete(ctx context.Context, id uint64) error

	// IsParticipant reports whether the user created or is assigned to any task of the project
	IsParticipant(ctx context.Context, projectID, userID uint64) (bool, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	// UserID restricts the result to tasks created by or assigned to the user
	UserID          uint64
	ProjectCode     string
	ParentCode      string
	Status          *models.TaskStatus
	Issue           *models.Issue
	ExcludeStatuses []models.TaskStatus
	Page            int
	PageSize        int
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create inserts a project
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a project by ID
	FindByID(ctx context.Context, id uint64) (*models.Project, error)

	// FindByIDForUpdate finds a project by ID and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uint64) (*models.Project, error)

	// FindByCode finds a project by its code
	FindByCode(ctx context.Context, code string) (*models.Project, error)

	// ExistsByCode reports whether another project already uses code
	ExistsByCode(ctx context.Context, code string, excludeID uint64) (bool, error)

	// ListByCreator lists the projects owned by a user
	ListByCreator(ctx context.Context, creatorID uint64, page, pageSize int) ([]models.Project, int64, error)

	// Update saves every column of a project
	Update(ctx context.Context, project *models.Project) error

	// Delete removes a project and all of its tasks
	Delete(ctx context.Context, id uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// Exists reports whether a user with the given ID exists
	Exists(ctx context.Context, id uint64) (bool, error)
}
