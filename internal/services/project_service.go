package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/umsebenzi/internal/constants"
	"github.com/yukikurage/umsebenzi/internal/models"
	"github.com/yukikurage/umsebenzi/internal/repository"
	"github.com/yukikurage/umsebenzi/internal/tracker"
	"gorm.io/gorm"
)

const (
	MsgFieldRequired   = "This field is required."
	MsgTitleTooLong    = "Ensure this field has no more than 255 characters."
	MsgInvalidCode     = "Code must be 1 to 10 letters or digits."
	maxTitleLength     = 255
	projectCodePattern = `^[A-Za-z0-9]{1,%d}$`
)

var projectCodeRe = regexp.MustCompile(fmt.Sprintf(projectCodePattern, constants.MaxProjectCodeLength))

// ProjectService handles project business logic
type ProjectService struct {
	store repository.Store
}

// NewProjectService creates a new ProjectService
func NewProjectService(store repository.Store) *ProjectService {
	return &ProjectService{store: store}
}

// ProjectInput holds the writable fields of a project
type ProjectInput struct {
	Title       string
	Description string
	Code        string
}

// UpdateProjectResult reports the saved project and how many task codes were rewritten
type UpdateProjectResult struct {
	Project      *models.Project
	RenamedTasks int
}

// CreateProject creates a project owned by creatorID
func (s *ProjectService) CreateProject(ctx context.Context, creatorID uint64, input ProjectInput) (*models.Project, error) {
	input = input.normalized()
	if verr := input.validate(); verr != nil {
		return nil, verr
	}

	projects := s.store.Projects()
	taken, err := projects.ExistsByCode(ctx, input.Code, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check project code: %w", err)
	}
	if taken {
		return nil, ErrProjectCodeTaken
	}

	project := &models.Project{
		Title:       input.Title,
		Description: input.Description,
		Code:        input.Code,
		Status:      models.ProjectStatusDraft,
		CreatorID:   creatorID,
	}
	if err := projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return projects.FindByID(ctx, project.ID)
}

// ListProjects returns the projects owned by userID
func (s *ProjectService) ListProjects(ctx context.Context, userID uint64, page, pageSize int) ([]models.Project, int64, error) {
	projects, total, err := s.store.Projects().ListByCreator(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// GetProject returns a project if actorID owns it
func (s *ProjectService) GetProject(ctx context.Context, projectID, actorID uint64) (*models.Project, error) {
	project, err := s.store.Projects().FindByID(ctx, projectID)
	return ownedProject(project, err, actorID)
}

// UpdateProject replaces the writable fields of a project. When the code
// changes, every task code of the project is rewritten in the same
// transaction.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID, actorID uint64, input ProjectInput) (*UpdateProjectResult, error) {
	input = input.normalized()
	if verr := input.validate(); verr != nil {
		return nil, verr
	}

	result := &UpdateProjectResult{}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		project, err := tx.Projects().FindByIDForUpdate(ctx, projectID)
		if project, err = ownedProject(project, err, actorID); err != nil {
			return err
		}

		oldCode := project.Code
		if input.Code != oldCode {
			taken, err := tx.Projects().ExistsByCode(ctx, input.Code, project.ID)
			if err != nil {
				return fmt.Errorf("failed to check project code: %w", err)
			}
			if taken {
				return ErrProjectCodeTaken
			}
		}

		project.Title = input.Title
		project.Description = input.Description
		project.Code = input.Code

		renamed, err := tracker.PropagateCodeRename(ctx, tx.Tasks(), project, oldCode, project.Code)
		if err != nil {
			return err
		}

		if err := tx.Projects().Update(ctx, project); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}

		result.RenamedTasks = renamed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Project, err = s.store.Projects().FindByID(ctx, projectID); err != nil {
		return nil, fmt.Errorf("failed to reload project: %w", err)
	}
	return result, nil
}

// UpdateProjectStatus changes only the status of a project
func (s *ProjectService) UpdateProjectStatus(ctx context.Context, projectID, actorID uint64, status models.ProjectStatus) (*models.Project, error) {
	if !status.IsValid() {
		return nil, &tracker.ValidationError{Field: "status", Message: fmt.Sprintf("%d is not a valid project status", status)}
	}

	project, err := s.GetProject(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}

	project.Status = status
	if err := s.store.Projects().Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project status: %w", err)
	}
	return project, nil
}

// DeleteProject deletes a project together with all of its tasks
func (s *ProjectService) DeleteProject(ctx context.Context, projectID, actorID uint64) error {
	if _, err := s.GetProject(ctx, projectID, actorID); err != nil {
		return err
	}

	if err := s.store.Projects().Delete(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// ownedProject maps the result of a project lookup to ErrProjectNotFound
// unless the project exists and belongs to actorID.
func ownedProject(project *models.Project, err error, actorID uint64) (*models.Project, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if project.CreatorID != actorID {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

func (in ProjectInput) normalized() ProjectInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Code = strings.TrimSpace(in.Code)
	return in
}

func (in ProjectInput) validate() *tracker.ValidationError {
	switch {
	case in.Title == "":
		return &tracker.ValidationError{Field: "title", Message: MsgFieldRequired}
	case utf8.RuneCountInString(in.Title) > maxTitleLength:
		return &tracker.ValidationError{Field: "title", Message: MsgTitleTooLong}
	case in.Description == "":
		return &tracker.ValidationError{Field: "description", Message: MsgFieldRequired}
	case in.Code == "":
		return &tracker.ValidationError{Field: "code", Message: MsgFieldRequired}
	case !projectCodeRe.MatchString(in.Code):
		return &tracker.ValidationError{Field: "code", Message: MsgInvalidCode}
	}
	return nil
}
