package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/umsebenzi/internal/constants"
	"github.com/yukikurage/umsebenzi/internal/models"
	"github.com/yukikurage/umsebenzi/internal/repository"
	"github.com/yukikurage/umsebenzi/internal/tracker"
	"gorm.io/gorm"
)

const (
	MsgTaskProjectChange = "Task cannot be moved to another project"
	MsgUserDoesNotExist  = "User does not exist."
)

// taskPreloads are the relations rendered by the task read model
var taskPreloads = []string{"Project", "Parent", "AssignedTo", "Creator"}

// TaskService handles task business logic
type TaskService struct {
	store     repository.Store
	aiService *AIService
}

// NewTaskService creates a new TaskService
func NewTaskService(store repository.Store, aiService *AIService) *TaskService {
	return &TaskService{
		store:     store,
		aiService: aiService,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	UserID      uint64
	ProjectCode string
	ParentCode  string
	Status      *models.TaskStatus
	Issue       *models.Issue
	Page        int
	PageSize    int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID    uint64
	Title        string
	Description  string
	Status       *models.TaskStatus
	Issue        *models.Issue
	ParentID     *uint64
	AssignedToID uint64
	DueDate      *time.Time
	CreatorID    uint64
}

// UpdateTaskInput represents input for updating a task. Nil fields are left unchanged.
type UpdateTaskInput struct {
	ProjectID    *uint64
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Issue        *models.Issue
	ParentID     *uint64
	ClearParent  bool
	AssignedToID *uint64
	DueDate      *time.Time
	ClearDueDate bool
}

// ListTasks returns the tasks created by or assigned to the user. Archived
// tasks are never listed.
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		UserID:          input.UserID,
		ProjectCode:     strings.TrimSpace(input.ProjectCode),
		ParentCode:      strings.TrimSpace(input.ParentCode),
		Status:          input.Status,
		Issue:           input.Issue,
		ExcludeStatuses: []models.TaskStatus{models.TaskStatusArchive},
		Page:            input.Page,
		PageSize:        input.PageSize,
	}

	tasks, total, err := s.store.Tasks().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task visible to actorID
func (s *TaskService) GetTask(ctx context.Context, code string, actorID uint64) (*models.Task, error) {
	task, err := s.store.Tasks().FindByCode(ctx, code, taskPreloads...)
	return visibleTask(task, err, actorID)
}

// CreateTask validates the hierarchy, assigns the next code of the project
// and inserts the task. The project row stays locked until the insert
// commits so concurrent creations never compute the same code.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if verr := validateCreateInput(input); verr != nil {
		return nil, verr
	}

	task := &models.Task{
		ProjectID:    input.ProjectID,
		Title:        input.Title,
		Description:  input.Description,
		Status:       models.TaskStatusDraft,
		Issue:        models.IssueEpic,
		ParentID:     input.ParentID,
		AssignedToID: input.AssignedToID,
		CreatorID:    input.CreatorID,
		DueDate:      input.DueDate,
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Issue != nil {
		task.Issue = *input.Issue
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		project, err := tx.Projects().FindByIDForUpdate(ctx, input.ProjectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("failed to lock project: %w", err)
		}
		if err := ensureCanCreateIn(ctx, tx, project, input.CreatorID); err != nil {
			return err
		}
		if err := ensureUserExists(ctx, tx, input.AssignedToID); err != nil {
			return err
		}

		parent, err := findParent(ctx, tx, input.ParentID, project.ID, input.CreatorID)
		if err != nil {
			return err
		}
		candidate := tracker.Candidate{Issue: task.Issue, ProjectID: project.ID, Parent: parent}
		if verr := tracker.ValidateHierarchy(candidate); verr != nil {
			return verr
		}

		n, err := tracker.NextCode(ctx, tx.Tasks(), project)
		if err != nil {
			return err
		}
		task.Code = tracker.ComposeCode(project.Code, n)

		if err := tx.Tasks().Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.store.Tasks().FindByID(ctx, task.ID, taskPreloads...)
}

// UpdateTask applies input to a task visible to actorID. Every field is taken
// from its own input value; the hierarchy is re-validated against the
// resulting state, including the children the task already has.
func (s *TaskService) UpdateTask(ctx context.Context, code string, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	var taskID uint64
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		task, err := tx.Tasks().FindByCode(ctx, code)
		if task, err = visibleTask(task, err, actorID); err != nil {
			return err
		}
		taskID = task.ID

		if input.ProjectID != nil && *input.ProjectID != task.ProjectID {
			return &tracker.ValidationError{Field: "project_id", Message: MsgTaskProjectChange}
		}
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return &tracker.ValidationError{Field: "title", Message: MsgFieldRequired}
			}
			task.Title = title
		}
		if input.Description != nil {
			description := strings.TrimSpace(*input.Description)
			if description == "" {
				return &tracker.ValidationError{Field: "description", Message: MsgFieldRequired}
			}
			task.Description = description
		}
		if input.Status != nil {
			if !input.Status.IsValid() {
				return &tracker.ValidationError{Field: "status", Message: "Invalid task status."}
			}
			task.Status = *input.Status
		}
		if input.Issue != nil {
			if !input.Issue.IsValid() {
				return &tracker.ValidationError{Field: "issue", Message: "Invalid issue."}
			}
			task.Issue = *input.Issue
		}
		if input.AssignedToID != nil {
			if err := ensureUserExists(ctx, tx, *input.AssignedToID); err != nil {
				return err
			}
			task.AssignedToID = *input.AssignedToID
		}
		if input.ClearDueDate {
			task.DueDate = nil
		} else if input.DueDate != nil {
			task.DueDate = input.DueDate
		}

		switch {
		case input.ClearParent:
			task.ParentID = nil
		case input.ParentID != nil:
			task.ParentID = input.ParentID
		}
		parent, err := findParent(ctx, tx, task.ParentID, task.ProjectID, actorID)
		if err != nil {
			return err
		}

		children, err := tx.Tasks().CountChildren(ctx, task.ID)
		if err != nil {
			return fmt.Errorf("failed to count subtasks: %w", err)
		}
		candidate := tracker.Candidate{TaskID: task.ID, Issue: task.Issue, ProjectID: task.ProjectID, Parent: parent}
		if verr := tracker.ValidateHierarchyUpdate(candidate, children); verr != nil {
			return verr
		}

		if err := tx.Tasks().Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.store.Tasks().FindByID(ctx, taskID, taskPreloads...)
}

// UpdateTaskStatus changes only the status of a task
func (s *TaskService) UpdateTaskStatus(ctx context.Context, code string, actorID uint64, status models.TaskStatus) (*models.Task, error) {
	if !status.IsValid() {
		return nil, &tracker.ValidationError{Field: "status", Message: "Invalid task status."}
	}

	task, err := s.store.Tasks().FindByCode(ctx, code)
	if task, err = visibleTask(task, err, actorID); err != nil {
		return nil, err
	}

	if err := s.store.Tasks().UpdateStatus(ctx, task.ID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	return s.store.Tasks().FindByID(ctx, task.ID, taskPreloads...)
}

// DeleteTask deletes a task and its subtasks
func (s *TaskService) DeleteTask(ctx context.Context, code string, actorID uint64) error {
	task, err := s.store.Tasks().FindByCode(ctx, code)
	if task, err = visibleTask(task, err, actorID); err != nil {
		return err
	}

	if err := s.store.Tasks().Delete(ctx, task.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// SuggestTasksInput represents input for AI task suggestions
type SuggestTasksInput struct {
	ProjectID uint64
	ActorID   uint64
	Text      string
}

// SuggestTasks uses AI to draft tasks for a project. Nothing is persisted;
// the client creates the tasks it wants to keep.
func (s *TaskService) SuggestTasks(ctx context.Context, input SuggestTasksInput) ([]GeneratedTask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, &tracker.ValidationError{Field: "text", Message: MsgFieldRequired}
	}

	project, err := s.store.Projects().FindByID(ctx, input.ProjectID)
	if project, err = ownedProject(project, err, input.ActorID); err != nil {
		return nil, err
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, project, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		aiTasks = aiTasks[:constants.MaxAIGeneratedTasks]
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}
		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		if aiTask.Issue != models.IssueSubtask {
			aiTask.Issue = models.IssueEpic
		}
		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

func validateCreateInput(input CreateTaskInput) *tracker.ValidationError {
	switch {
	case input.ProjectID == 0:
		return &tracker.ValidationError{Field: "project_id", Message: MsgFieldRequired}
	case input.Title == "":
		return &tracker.ValidationError{Field: "title", Message: MsgFieldRequired}
	case input.Description == "":
		return &tracker.ValidationError{Field: "description", Message: MsgFieldRequired}
	case input.AssignedToID == 0:
		return &tracker.ValidationError{Field: "assigned_to_id", Message: MsgFieldRequired}
	case input.Status != nil && !input.Status.IsValid():
		return &tracker.ValidationError{Field: "status", Message: "Invalid task status."}
	case input.Issue != nil && !input.Issue.IsValid():
		return &tracker.ValidationError{Field: "issue", Message: "Invalid issue."}
	}
	return nil
}

// visibleTask maps the result of a task lookup to ErrTaskNotFound unless
// actorID created the task or is assigned to it.
func visibleTask(task *models.Task, err error, actorID uint64) (*models.Task, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.CreatorID != actorID && task.AssignedToID != actorID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// ensureCanCreateIn allows the project owner and anyone already working on
// one of its tasks.
func ensureCanCreateIn(ctx context.Context, tx repository.Store, project *models.Project, userID uint64) error {
	if project.CreatorID == userID {
		return nil
	}
	ok, err := tx.Tasks().IsParticipant(ctx, project.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to check project access: %w", err)
	}
	if !ok {
		return ErrProjectNotFound
	}
	return nil
}

func ensureUserExists(ctx context.Context, tx repository.Store, userID uint64) error {
	ok, err := tx.Users().Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	if !ok {
		return &tracker.ValidationError{Field: "assigned_to_id", Message: MsgUserDoesNotExist}
	}
	return nil
}

// findParent loads the parent named by parentID. A parent outside projectID
// that actorID neither created nor is assigned to reads as ErrParentNotFound.
func findParent(ctx context.Context, tx repository.Store, parentID *uint64, projectID, actorID uint64) (*models.Task, error) {
	if parentID == nil {
		return nil, nil
	}
	parent, err := tx.Tasks().FindByID(ctx, *parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParentNotFound
		}
		return nil, fmt.Errorf("failed to find parent task: %w", err)
	}
	if parent.ProjectID != projectID && parent.CreatorID != actorID && parent.AssignedToID != actorID {
		return nil, ErrParentNotFound
	}
	return parent, nil
}
