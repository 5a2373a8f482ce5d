package dto

import (
	"time"

	"github.com/yukikurage/umsebenzi/internal/models"
)

// ProjectRefDTO is the short form of a project embedded in a task
type ProjectRefDTO struct {
	ID    uint64 `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64            `json:"id"`
	Code        string            `json:"code"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	Issue       models.Issue      `json:"issue"`
	ProjectID   uint64            `json:"project_id"`
	Project     *ProjectRefDTO    `json:"project,omitempty"`
	ParentID    *uint64           `json:"parent"`
	ParentCode  *string           `json:"parent_code"`
	AssignedTo  *UserDTO          `json:"assigned_to,omitempty"`
	CreatedBy   *UserDTO          `json:"created_by,omitempty"`
	DueDate     *time.Time        `json:"due_date"`
	CreatedAt   time.Time         `json:"created_at"`
	ModifiedAt  time.Time         `json:"modified_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// ToTaskDTO converts a Task model to TaskDTO. Relations are included when preloaded.
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Code:        task.Code,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Issue:       task.Issue,
		ProjectID:   task.ProjectID,
		ParentID:    task.ParentID,
		AssignedTo:  optionalUser(task.AssignedTo),
		CreatedBy:   optionalUser(task.Creator),
		DueDate:     task.DueDate,
		CreatedAt:   task.CreatedAt,
		ModifiedAt:  task.UpdatedAt,
	}

	if task.Project.ID != 0 {
		dto.Project = &ProjectRefDTO{
			ID:    task.Project.ID,
			Code:  task.Project.Code,
			Title: task.Project.Title,
		}
	}

	if task.Parent != nil {
		code := task.Parent.Code
		dto.ParentCode = &code
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}
