package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/umsebenzi/internal/models"
	"github.com/yukikurage/umsebenzi/internal/repository"
	"github.com/yukikurage/umsebenzi/internal/tracker"
	"gorm.io/gorm"
)

type TaskServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	store    *repository.GormStore
	service  *TaskService
	creator  *models.User
	assignee *models.User
	stranger *models.User
	project  *models.Project
	other    *models.Project
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

func (s *TaskServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db, s.store = newTestStore(s.T())
	s.service = NewTaskService(s.store, nil)
	s.creator = createUser(s.T(), s.store, "creator")
	s.assignee = createUser(s.T(), s.store, "assignee")
	s.stranger = createUser(s.T(), s.store, "stranger")

	projects := NewProjectService(s.store)
	var err error
	s.project, err = projects.CreateProject(s.ctx, s.creator.ID, ProjectInput{Title: "New Project", Description: "d", Code: "NP"})
	s.Require().NoError(err)
	s.other, err = projects.CreateProject(s.ctx, s.creator.ID, ProjectInput{Title: "Other", Description: "d", Code: "OT"})
	s.Require().NoError(err)
}

func (s *TaskServiceTestSuite) input(project *models.Project, issue models.Issue, parent *models.Task) CreateTaskInput {
	input := CreateTaskInput{
		ProjectID:    project.ID,
		Title:        "Hello World",
		Description:  "Complete task",
		Issue:        issuePtr(issue),
		AssignedToID: s.assignee.ID,
		CreatorID:    s.creator.ID,
	}
	if parent != nil {
		input.ParentID = &parent.ID
	}
	return input
}

func (s *TaskServiceTestSuite) create(project *models.Project, issue models.Issue, parent *models.Task) *models.Task {
	task, err := s.service.CreateTask(s.ctx, s.input(project, issue, parent))
	s.Require().NoError(err)
	return task
}

func (s *TaskServiceTestSuite) requireValidation(err error, field, message string) {
	var verr *tracker.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal(field, verr.Field)
	s.Equal(message, verr.Message)
}

func (s *TaskServiceTestSuite) TestCreateTask_AssignsSequentialCodes() {
	first := s.create(s.project, models.IssueEpic, nil)
	second := s.create(s.project, models.IssueEpic, nil)
	otherFirst := s.create(s.other, models.IssueEpic, nil)

	s.Equal("NP-1", first.Code)
	s.Equal("NP-2", second.Code)
	s.Equal("OT-1", otherFirst.Code)
	s.Equal(models.TaskStatusDraft, first.Status)
	s.Equal("NP", first.Project.Code)
	s.Equal("assignee", first.AssignedTo.Username)
	s.Equal("creator", first.Creator.Username)
}

func (s *TaskServiceTestSuite) TestCreateTask_CodeAfterDeletion() {
	s.create(s.project, models.IssueEpic, nil)
	second := s.create(s.project, models.IssueEpic, nil)
	third := s.create(s.project, models.IssueEpic, nil)

	// Deleting an older task leaves a gap.
	s.Require().NoError(s.service.DeleteTask(s.ctx, second.Code, s.creator.ID))
	s.Equal("NP-4", s.create(s.project, models.IssueEpic, nil).Code)

	// Deleting the newest task frees its suffix.
	s.Require().NoError(s.service.DeleteTask(s.ctx, "NP-4", s.creator.ID))
	s.Require().NoError(s.service.DeleteTask(s.ctx, third.Code, s.creator.ID))
	s.Equal("NP-2", s.create(s.project, models.IssueEpic, nil).Code)
}

func (s *TaskServiceTestSuite) TestCreateTask_SubtaskOfEpic() {
	epic := s.create(s.project, models.IssueEpic, nil)
	sub := s.create(s.project, models.IssueSubtask, epic)

	s.Equal("NP-2", sub.Code)
	s.Require().NotNil(sub.Parent)
	s.Equal(epic.ID, sub.Parent.ID)
}

func (s *TaskServiceTestSuite) TestCreateTask_HierarchyViolations() {
	epic := s.create(s.project, models.IssueEpic, nil)
	sub := s.create(s.project, models.IssueSubtask, epic)
	foreignEpic := s.create(s.other, models.IssueEpic, nil)

	_, err := s.service.CreateTask(s.ctx, s.input(s.project, models.IssueEpic, epic))
	s.requireValidation(err, "parent", "Epic task cannot have parent")

	_, err = s.service.CreateTask(s.ctx, s.input(s.project, models.IssueSubtask, nil))
	s.requireValidation(err, "parent", "Subtask needs a parent")

	_, err = s.service.CreateTask(s.ctx, s.input(s.project, models.IssueSubtask, sub))
	s.requireValidation(err, "parent", "Subtask cannot have subtask parent")

	_, err = s.service.CreateTask(s.ctx, s.input(s.project, models.IssueSubtask, foreignEpic))
	s.requireValidation(err, "parent", "Subtask parent(epic) must belong to same project")

	// Rejected creations consume no code.
	s.Equal("NP-3", s.create(s.project, models.IssueEpic, nil).Code)
}

func (s *TaskServiceTestSuite) TestCreateTask_MissingReferences() {
	input := s.input(s.project, models.IssueSubtask, nil)
	input.ParentID = uint64Ptr(999)
	_, err := s.service.CreateTask(s.ctx, input)
	s.ErrorIs(err, ErrParentNotFound)

	input = s.input(s.project, models.IssueEpic, nil)
	input.ProjectID = 999
	_, err = s.service.CreateTask(s.ctx, input)
	s.ErrorIs(err, ErrProjectNotFound)

	input = s.input(s.project, models.IssueEpic, nil)
	input.AssignedToID = 999
	_, err = s.service.CreateTask(s.ctx, input)
	s.requireValidation(err, "assigned_to_id", MsgUserDoesNotExist)
}

func (s *TaskServiceTestSuite) TestCreateTask_RequiredFields() {
	_, err := s.service.CreateTask(s.ctx, CreateTaskInput{CreatorID: s.creator.ID})
	s.requireValidation(err, "project_id", MsgFieldRequired)

	input := s.input(s.project, models.IssueEpic, nil)
	input.Title = "   "
	_, err = s.service.CreateTask(s.ctx, input)
	s.requireValidation(err, "title", MsgFieldRequired)
}

func (s *TaskServiceTestSuite) TestCreateTask_Access() {
	input := s.input(s.project, models.IssueEpic, nil)
	input.CreatorID = s.stranger.ID
	_, err := s.service.CreateTask(s.ctx, input)
	s.ErrorIs(err, ErrProjectNotFound)

	// The assignee of an existing task may add more.
	s.create(s.project, models.IssueEpic, nil)
	input.CreatorID = s.assignee.ID
	task, err := s.service.CreateTask(s.ctx, input)
	s.Require().NoError(err)
	s.Equal("NP-2", task.Code)
}

func (s *TaskServiceTestSuite) TestCreateTask_MalformedLatestCode() {
	task := s.create(s.project, models.IssueEpic, nil)
	s.Require().NoError(s.db.Model(&models.Task{}).Where("id = ?", task.ID).Update("code", "NP-x").Error)

	_, err := s.service.CreateTask(s.ctx, s.input(s.project, models.IssueEpic, nil))

	var formatErr *tracker.CodeFormatError
	s.ErrorAs(err, &formatErr)
}

func (s *TaskServiceTestSuite) TestCreateTask_ConcurrentCodesAreDistinct() {
	const workers = 12

	var wg sync.WaitGroup
	codes := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := s.service.CreateTask(s.ctx, s.input(s.project, models.IssueEpic, nil))
			if err != nil {
				errs <- err
				return
			}
			codes <- task.Code
		}()
	}
	wg.Wait()
	close(codes)
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}

	var got []string
	for code := range codes {
		got = append(got, code)
	}
	sort.Strings(got)

	want := make([]string, 0, workers)
	for i := 1; i <= workers; i++ {
		want = append(want, fmt.Sprintf("NP-%d", i))
	}
	sort.Strings(want)
	s.Equal(want, got)
}

func (s *TaskServiceTestSuite) TestUpdateTask_Fields() {
	task := s.create(s.project, models.IssueEpic, nil)

	updated, err := s.service.UpdateTask(s.ctx, task.Code, s.assignee.ID, UpdateTaskInput{
		Title:        strPtr("Renamed"),
		Status:       statusPtr(models.TaskStatusInProgress),
		Issue:        issuePtr(models.IssueEpic),
		AssignedToID: &s.creator.ID,
	})

	s.Require().NoError(err)
	s.Equal("Renamed", updated.Title)
	s.Equal(models.TaskStatusInProgress, updated.Status)
	s.Equal(models.IssueEpic, updated.Issue)
	s.Equal(s.creator.ID, updated.AssignedToID)
	s.Equal("NP-1", updated.Code)
}

func (s *TaskServiceTestSuite) TestUpdateTask_CannotChangeProject() {
	task := s.create(s.project, models.IssueEpic, nil)

	_, err := s.service.UpdateTask(s.ctx, task.Code, s.creator.ID, UpdateTaskInput{ProjectID: &s.other.ID})

	s.requireValidation(err, "project_id", MsgTaskProjectChange)

	_, err = s.service.UpdateTask(s.ctx, task.Code, s.creator.ID, UpdateTaskInput{ProjectID: &s.project.ID})
	s.NoError(err)
}

func (s *TaskServiceTestSuite) TestUpdateTask_EpicWithChildrenCannotBecomeSubtask() {
	epic := s.create(s.project, models.IssueEpic, nil)
	s.create(s.project, models.IssueSubtask, epic)
	otherEpic := s.create(s.project, models.IssueEpic, nil)

	_, err := s.service.UpdateTask(s.ctx, epic.Code, s.creator.ID, UpdateTaskInput{
		Issue:    issuePtr(models.IssueSubtask),
		ParentID: &otherEpic.ID,
	})

	s.requireValidation(err, "issue", "Subtask cannot have subtasks")

	reloaded, err := s.store.Tasks().FindByID(s.ctx, epic.ID)
	s.Require().NoError(err)
	s.Equal(models.IssueEpic, reloaded.Issue)
	s.Nil(reloaded.ParentID)
}

func (s *TaskServiceTestSuite) TestUpdateTask_SubtaskMovesToAnotherEpic() {
	epic := s.create(s.project, models.IssueEpic, nil)
	sub := s.create(s.project, models.IssueSubtask, epic)
	otherEpic := s.create(s.project, models.IssueEpic, nil)

	updated, err := s.service.UpdateTask(s.ctx, sub.Code, s.creator.ID, UpdateTaskInput{ParentID: &otherEpic.ID})

	s.Require().NoError(err)
	s.Require().NotNil(updated.ParentID)
	s.Equal(otherEpic.ID, *updated.ParentID)
}

func (s *TaskServiceTestSuite) TestUpdateTask_SubtaskBecomesEpic() {
	epic := s.create(s.project, models.IssueEpic, nil)
	sub := s.create(s.project, models.IssueSubtask, epic)

	_, err := s.service.UpdateTask(s.ctx, sub.Code, s.creator.ID, UpdateTaskInput{Issue: issuePtr(models.IssueEpic)})
	s.requireValidation(err, "parent", "Epic task cannot have parent")

	updated, err := s.service.UpdateTask(s.ctx, sub.Code, s.creator.ID, UpdateTaskInput{
		Issue:       issuePtr(models.IssueEpic),
		ClearParent: true,
	})
	s.Require().NoError(err)
	s.Nil(updated.ParentID)
}

func (s *TaskServiceTestSuite) TestUpdateTask_StatusDoesNotFollowIssue() {
	task := s.create(s.project, models.IssueEpic, nil)

	updated, err := s.service.UpdateTask(s.ctx, task.Code, s.creator.ID, UpdateTaskInput{
		Issue:  issuePtr(models.IssueEpic),
		Status: statusPtr(models.TaskStatusReview),
	})

	s.Require().NoError(err)
	s.Equal(models.TaskStatusReview, updated.Status)
	s.Equal(models.IssueEpic, updated.Issue)
}

func (s *TaskServiceTestSuite) TestUpdateTask_StrangerSeesNotFound() {
	task := s.create(s.project, models.IssueEpic, nil)

	_, err := s.service.UpdateTask(s.ctx, task.Code, s.stranger.ID, UpdateTaskInput{Title: strPtr("x")})

	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestUpdateTaskStatus() {
	task := s.create(s.project, models.IssueEpic, nil)

	updated, err := s.service.UpdateTaskStatus(s.ctx, task.Code, s.assignee.ID, models.TaskStatusComplete)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusComplete, updated.Status)

	_, err = s.service.UpdateTaskStatus(s.ctx, task.Code, s.stranger.ID, models.TaskStatusComplete)
	s.ErrorIs(err, ErrTaskNotFound)

	_, err = s.service.UpdateTaskStatus(s.ctx, task.Code, s.creator.ID, models.TaskStatus(0))
	s.requireValidation(err, "status", "Invalid task status.")
}

// renameOnLookupStore runs rename once, right after the first task lookup by code
type renameOnLookupStore struct {
	repository.Store
	rename func()
}

func (s *renameOnLookupStore) Tasks() repository.TaskRepository {
	return &renameOnLookupTasks{TaskRepository: s.Store.Tasks(), store: s}
}

type renameOnLookupTasks struct {
	repository.TaskRepository
	store *renameOnLookupStore
}

func (t *renameOnLookupTasks) FindByCode(ctx context.Context, code string, preload ...string) (*models.Task, error) {
	task, err := t.TaskRepository.FindByCode(ctx, code, preload...)
	if rename := t.store.rename; rename != nil {
		t.store.rename = nil
		rename()
	}
	return task, err
}

func (s *TaskServiceTestSuite) TestUpdateTaskStatus_KeepsCodeOfConcurrentRename() {
	task := s.create(s.project, models.IssueEpic, nil)
	projects := NewProjectService(s.store)

	store := &renameOnLookupStore{Store: s.store, rename: func() {
		_, err := projects.UpdateProject(s.ctx, s.project.ID, s.creator.ID, ProjectInput{Title: "New Project", Description: "d", Code: "EX"})
		s.Require().NoError(err)
	}}

	updated, err := NewTaskService(store, nil).UpdateTaskStatus(s.ctx, task.Code, s.creator.ID, models.TaskStatusComplete)
	s.Require().NoError(err)
	s.Equal("EX-1", updated.Code)
	s.Equal(models.TaskStatusComplete, updated.Status)

	// The project can still be renamed afterwards.
	result, err := projects.UpdateProject(s.ctx, s.project.ID, s.creator.ID, ProjectInput{Title: "New Project", Description: "d", Code: "NX"})
	s.Require().NoError(err)
	s.Equal(1, result.RenamedTasks)
	_, err = s.store.Tasks().FindByCode(s.ctx, "NX-1")
	s.NoError(err)
}

func (s *TaskServiceTestSuite) TestUpdateTask_DoesNotWriteCodeBack() {
	task := s.create(s.project, models.IssueEpic, nil)
	s.Require().NoError(s.store.Tasks().UpdateCode(s.ctx, task.ID, "EX-1"))

	// A stale copy loaded before the rename must not restore the old code.
	task.Title = "Stale copy"
	s.Require().NoError(s.store.Tasks().Update(s.ctx, task))

	reloaded, err := s.store.Tasks().FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("EX-1", reloaded.Code)
	s.Equal("Stale copy", reloaded.Title)
}

func (s *TaskServiceTestSuite) TestCreateTask_ParentOutsideScopeReadsAsNotFound() {
	zz, err := NewProjectService(s.store).CreateProject(s.ctx, s.stranger.ID, ProjectInput{Title: "Stranger", Description: "d", Code: "ZZ"})
	s.Require().NoError(err)

	input := s.input(zz, models.IssueEpic, nil)
	input.CreatorID = s.stranger.ID
	input.AssignedToID = s.stranger.ID
	strangerEpic, err := s.service.CreateTask(s.ctx, input)
	s.Require().NoError(err)

	_, err = s.service.CreateTask(s.ctx, s.input(s.project, models.IssueSubtask, strangerEpic))
	s.ErrorIs(err, ErrParentNotFound)

	missing := s.input(s.project, models.IssueSubtask, nil)
	missing.ParentID = uint64Ptr(9999)
	_, err = s.service.CreateTask(s.ctx, missing)
	s.ErrorIs(err, ErrParentNotFound)

	sub := s.create(s.project, models.IssueSubtask, s.create(s.project, models.IssueEpic, nil))
	_, err = s.service.UpdateTask(s.ctx, sub.Code, s.creator.ID, UpdateTaskInput{ParentID: &strangerEpic.ID})
	s.ErrorIs(err, ErrParentNotFound)
}

func (s *TaskServiceTestSuite) TestDeleteTask_RemovesSubtasks() {
	epic := s.create(s.project, models.IssueEpic, nil)
	sub := s.create(s.project, models.IssueSubtask, epic)

	s.ErrorIs(s.service.DeleteTask(s.ctx, epic.Code, s.stranger.ID), ErrTaskNotFound)
	s.Require().NoError(s.service.DeleteTask(s.ctx, epic.Code, s.creator.ID))

	_, err := s.service.GetTask(s.ctx, sub.Code, s.creator.ID)
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestListTasks_ExcludesArchiveAndForeignTasks() {
	visible := s.create(s.project, models.IssueEpic, nil)
	archived := s.create(s.project, models.IssueEpic, nil)
	_, err := s.service.UpdateTaskStatus(s.ctx, archived.Code, s.creator.ID, models.TaskStatusArchive)
	s.Require().NoError(err)
	s.create(s.other, models.IssueEpic, nil)

	tasks, total, err := s.service.ListTasks(s.ctx, ListTasksInput{UserID: s.creator.ID, ProjectCode: "NP"})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(tasks, 1)
	s.Equal(visible.Code, tasks[0].Code)

	tasks, _, err = s.service.ListTasks(s.ctx, ListTasksInput{UserID: s.assignee.ID})
	s.Require().NoError(err)
	s.Len(tasks, 2)

	tasks, total, err = s.service.ListTasks(s.ctx, ListTasksInput{UserID: s.stranger.ID})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(tasks)

	tasks, _, err = s.service.ListTasks(s.ctx, ListTasksInput{UserID: s.creator.ID, Status: statusPtr(models.TaskStatusArchive)})
	s.Require().NoError(err)
	s.Empty(tasks)
}

func (s *TaskServiceTestSuite) TestListTasks_ParentFilter() {
	epic := s.create(s.project, models.IssueEpic, nil)
	sub := s.create(s.project, models.IssueSubtask, epic)
	s.create(s.project, models.IssueEpic, nil)

	tasks, _, err := s.service.ListTasks(s.ctx, ListTasksInput{UserID: s.creator.ID, ParentCode: epic.Code})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(sub.Code, tasks[0].Code)

	tasks, _, err = s.service.ListTasks(s.ctx, ListTasksInput{UserID: s.creator.ID, Issue: issuePtr(models.IssueEpic)})
	s.Require().NoError(err)
	s.Len(tasks, 2)
}
