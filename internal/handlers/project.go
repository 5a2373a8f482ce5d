package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/umsebenzi/internal/dto"
	apierrors "github.com/yukikurage/umsebenzi/internal/errors"
	"github.com/yukikurage/umsebenzi/internal/middleware"
	"github.com/yukikurage/umsebenzi/internal/models"
	"github.com/yukikurage/umsebenzi/internal/services"
	"github.com/yukikurage/umsebenzi/internal/utils"
)

// ProjectHandler serves the owner-scoped project endpoints
type ProjectHandler struct {
	projectService *services.ProjectService
	taskService    *services.TaskService
}

func NewProjectHandler(projectService *services.ProjectService, taskService *services.TaskService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		taskService:    taskService,
	}
}

type projectRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

func (r projectRequest) input() services.ProjectInput {
	return services.ProjectInput{
		Title:       r.Title,
		Description: r.Description,
		Code:        r.Code,
	}
}

// ListProjects returns the projects created by the current user
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	projects, total, err := h.projectService.ListProjects(c.Request.Context(), userID, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectListResponse(projects, params.Page, params.Limit, total))
}

// CreateProject creates a project owned by the current user
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req projectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), userID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// GetProject returns the project loaded by RequireProjectOwner
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// UpdateProject replaces title, description and code. A code change renames
// every task of the project in the same transaction.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	project, userID, ok := projectContext(c)
	if !ok {
		return
	}

	var req projectRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.projectService.UpdateProject(c.Request.Context(), project.ID, userID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProjectUpdateResponse{
		ProjectDTO:   dto.ToProjectDTO(*result.Project),
		RenamedTasks: result.RenamedTasks,
	})
}

// UpdateProjectStatus changes only the project status
func (h *ProjectHandler) UpdateProjectStatus(c *gin.Context) {
	project, userID, ok := projectContext(c)
	if !ok {
		return
	}

	var req struct {
		Status *models.ProjectStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.projectService.UpdateProjectStatus(c.Request.Context(), project.ID, userID, *req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*updated))
}

// DeleteProject deletes the project and all of its tasks
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	project, userID, ok := projectContext(c)
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), project.ID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GenerateTasks drafts tasks for the project from free text using AI.
// The drafts are returned, not stored.
func (h *ProjectHandler) GenerateTasks(c *gin.Context) {
	project, userID, ok := projectContext(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required,max=10000"`
	}
	if !bindJSON(c, &req) {
		return
	}

	suggestions, err := h.taskService.SuggestTasks(c.Request.Context(), services.SuggestTasksInput{
		ProjectID: project.ID,
		ActorID:   userID,
		Text:      req.Text,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project": project.Code,
		"tasks":   suggestions,
	})
}

func projectContext(c *gin.Context) (*models.Project, uint64, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return nil, 0, false
	}
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return nil, 0, false
	}
	return project, userID, true
}
