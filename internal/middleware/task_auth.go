package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/umsebenzi/internal/constants"
	apierrors "github.com/yukikurage/umsebenzi/internal/errors"
	"github.com/yukikurage/umsebenzi/internal/models"
	"github.com/yukikurage/umsebenzi/internal/repository"
	"gorm.io/gorm"
)

// RequireTaskAccess checks if the user has access to a task.
// The task is looked up by the :code parameter; only its creator and its
// assignee may see it.
func RequireTaskAccess(tasks repository.TaskRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		if code == "" {
			apierrors.BadRequest(c, "Invalid task code")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := tasks.FindByCode(c.Request.Context(), code, "Project", "Parent", "AssignedTo", "Creator")
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.NotFound(c, "Task not found")
			} else {
				apierrors.InternalError(c, "Failed to load task")
			}
			c.Abort()
			return
		}

		// Return 404 instead of 403 to avoid leaking task existence
		if task.CreatorID != userID && task.AssignedToID != userID {
			apierrors.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask returns the task stored by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := value.(*models.Task)
	return task, ok
}
