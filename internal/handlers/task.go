package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/umsebenzi/internal/dto"
	apierrors "github.com/yukikurage/umsebenzi/internal/errors"
	"github.com/yukikurage/umsebenzi/internal/middleware"
	"github.com/yukikurage/umsebenzi/internal/models"
	"github.com/yukikurage/umsebenzi/internal/services"
	"github.com/yukikurage/umsebenzi/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks created by or assigned to the current user.
// Supports project, parent, status and issue filters.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		UserID:      userID,
		ProjectCode: c.Query("project"),
		ParentCode:  c.Query("parent"),
		Page:        params.Page,
		PageSize:    params.Limit,
	}

	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseTaskStatus(raw)
		if err != nil {
			apierrors.FieldError(c, "status", "Select a valid choice.")
			return
		}
		input.Status = &status
	}
	if raw := c.Query("issue"); raw != "" {
		issue, err := models.ParseIssue(raw)
		if err != nil {
			apierrors.FieldError(c, "issue", "Select a valid choice.")
			return
		}
		input.Issue = &issue
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// GetTask returns a specific task by code
// Task is already loaded with relations by RequireTaskAccess middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task; its code is assigned from the project
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		ProjectID    uint64             `json:"project_id" binding:"required"`
		Title        string             `json:"title" binding:"required,max=255"`
		Description  string             `json:"description" binding:"required"`
		Status       *models.TaskStatus `json:"status"`
		Issue        *models.Issue      `json:"issue"`
		ParentID     *uint64            `json:"parent"`
		AssignedToID uint64             `json:"assigned_to_id" binding:"required"`
		DueDate      *time.Time         `json:"due_date"`
	}

	var req CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		ProjectID:    req.ProjectID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Issue:        req.Issue,
		ParentID:     req.ParentID,
		AssignedToID: req.AssignedToID,
		DueDate:      req.DueDate,
		CreatorID:    userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask replaces the editable fields of a task. An absent parent or
// due_date clears it; an absent status or issue keeps the current value.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, userID, ok := taskContext(c)
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		ProjectID    *uint64            `json:"project_id"`
		Title        string             `json:"title" binding:"required,max=255"`
		Description  string             `json:"description" binding:"required"`
		Status       *models.TaskStatus `json:"status"`
		Issue        *models.Issue      `json:"issue"`
		ParentID     *uint64            `json:"parent"`
		AssignedToID uint64             `json:"assigned_to_id" binding:"required"`
		DueDate      *time.Time         `json:"due_date"`
	}

	var req UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.taskService.UpdateTask(c.Request.Context(), task.Code, userID, services.UpdateTaskInput{
		ProjectID:    req.ProjectID,
		Title:        &req.Title,
		Description:  &req.Description,
		Status:       req.Status,
		Issue:        req.Issue,
		ParentID:     req.ParentID,
		ClearParent:  req.ParentID == nil,
		AssignedToID: &req.AssignedToID,
		DueDate:      req.DueDate,
		ClearDueDate: req.DueDate == nil,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// UpdateTaskStatus changes only the task status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	task, userID, ok := taskContext(c)
	if !ok {
		return
	}

	var req struct {
		Status *models.TaskStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.taskService.UpdateTaskStatus(c.Request.Context(), task.Code, userID, *req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask deletes a task together with its subtasks
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, userID, ok := taskContext(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), task.Code, userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func taskContext(c *gin.Context) (*models.Task, uint64, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return nil, 0, false
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return nil, 0, false
	}
	return task, userID, true
}
