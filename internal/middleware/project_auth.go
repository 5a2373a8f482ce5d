package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/umsebenzi/internal/constants"
	apierrors "github.com/yukikurage/umsebenzi/internal/errors"
	"github.com/yukikurage/umsebenzi/internal/models"
	"github.com/yukikurage/umsebenzi/internal/repository"
	"gorm.io/gorm"
)

// RequireProjectOwner loads the project named by the :id parameter and lets
// the request through only for its creator
func RequireProjectOwner(projects repository.ProjectRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		project, err := projects.FindByID(c.Request.Context(), projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.NotFound(c, "Project not found")
			} else {
				apierrors.InternalError(c, "Failed to load project")
			}
			c.Abort()
			return
		}

		// Return 404 instead of 403 to avoid leaking project existence
		if project.CreatorID != userID {
			apierrors.NotFound(c, "Project not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyProject, project)
		c.Next()
	}
}

// GetProject returns the project stored by RequireProjectOwner
func GetProject(c *gin.Context) (*models.Project, bool) {
	value, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return nil, false
	}
	project, ok := value.(*models.Project)
	return project, ok
}
