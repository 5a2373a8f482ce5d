package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/umsebenzi/internal/database"
	"github.com/yukikurage/umsebenzi/internal/models"
	"github.com/yukikurage/umsebenzi/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	if err := withPreloads(r.db.WithContext(ctx), preload).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByCode finds a task by its code
func (r *GormTaskRepository) FindByCode(ctx context.Context, code string, preload ...string) (*models.Task, error) {
	var task models.Task
	if err := withPreloads(r.db.WithContext(ctx), preload).Where("code = ?", code).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindLatestByProject returns the task with the greatest id in the project
func (r *GormTaskRepository) FindLatestByProject(ctx context.Context, projectID uint64) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: clause.PrimaryKey}, Desc: true}).
		Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByProject returns every task of a project ordered by id
func (r *GormTaskRepository) ListByProject(ctx context.Context, projectID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateCode rewrites the code of a single task
func (r *GormTaskRepository) UpdateCode(ctx context.Context, taskID uint64, code string) error {
	result := r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", taskID).Update("code", code)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountChildren counts the subtasks of a task
func (r *GormTaskRepository) CountChildren(ctx context.Context, taskID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).Where("parent_id = ?", taskID).Count(&count).Error
	return count, err
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	db := r.db.WithContext(ctx)
	query := db.Model(&models.Task{}).
		Where("(tasks.creator_id = ? OR tasks.assigned_to_id = ?)", filter.UserID, filter.UserID)

	// Apply filters
	if filter.ProjectCode != "" {
		projectSubQuery := db.Model(&models.Project{}).Select("id").Where("code = ?", filter.ProjectCode)
		query = query.Where("tasks.project_id IN (?)", projectSubQuery)
	}
	if filter.ParentCode != "" {
		parentSubQuery := db.Model(&models.Task{}).Select("id").Where("code = ?", filter.ParentCode)
		query = query.Where("tasks.parent_id IN (?)", parentSubQuery)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Issue != nil {
		query = query.Where("tasks.issue = ?", *filter.Issue)
	}
	if len(filter.ExcludeStatuses) > 0 {
		query = query.Where("tasks.status NOT IN ?", filter.ExcludeStatuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.id ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	var tasks []models.Task
	if err := listQuery.Preload("Project").Preload("Parent").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// taskEditableColumns are written by Update. code and project_id belong to
// the project rename path and are never written back from a loaded task.
var taskEditableColumns = []string{
	"title", "description", "status", "issue", "parent_id", "assigned_to_id", "due_date", "updated_at",
}

// Update writes the editable columns of a task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Model(task).Select(taskEditableColumns).Updates(task).Error
}

// UpdateStatus rewrites the status of a single task
func (r *GormTaskRepository) UpdateStatus(ctx context.Context, taskID uint64, status models.TaskStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", taskID).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a task and its subtasks in a transaction
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Task{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// IsParticipant reports whether the user created or is assigned to a task of the project
func (r *GormTaskRepository) IsParticipant(ctx context.Context, projectID, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("project_id = ?", projectID).
		Where("(creator_id = ? OR assigned_to_id = ?)", userID, userID).
		Count(&count).Error
	return count > 0, err
}

func withPreloads(db *gorm.DB, preload []string) *gorm.DB {
	for _, p := range preload {
		db = db.Preload(p)
	}
	return db
}
