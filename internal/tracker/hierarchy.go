package tracker

import "github.com/yukikurage/umsebenzi/internal/models"

const (
	MsgEpicWithParent      = "Epic task cannot have parent"
	MsgSubtaskNeedsParent  = "Subtask needs a parent"
	MsgSubtaskOfSubtask    = "Subtask cannot have subtask parent"
	MsgParentOtherProject  = "Subtask parent(epic) must belong to same project"
	MsgOwnParent           = "Task cannot be its own parent"
	MsgSubtaskWithChildren = "Subtask cannot have subtasks"
)

// Candidate is the state a task would have after a create or update.
// TaskID is zero for a task that does not exist yet.
type Candidate struct {
	TaskID    uint64
	Issue     models.Issue
	ProjectID uint64
	Parent    *models.Task
}

// ValidateHierarchy checks the parent relation of a candidate task.
// Rules run in a fixed order so the reported message is deterministic.
func ValidateHierarchy(c Candidate) *ValidationError {
	switch {
	case c.Issue == models.IssueEpic && c.Parent != nil:
		return newValidationError("parent", MsgEpicWithParent)
	case c.Issue == models.IssueSubtask && c.Parent == nil:
		return newValidationError("parent", MsgSubtaskNeedsParent)
	case c.Issue == models.IssueSubtask && c.Parent.Issue == models.IssueSubtask:
		return newValidationError("parent", MsgSubtaskOfSubtask)
	case c.Parent != nil && c.Parent.ProjectID != c.ProjectID:
		return newValidationError("parent", MsgParentOtherProject)
	}
	return nil
}

// ValidateHierarchyUpdate applies ValidateHierarchy and the rules that only
// matter for an existing task. childCount is the number of tasks whose parent
// is the candidate.
func ValidateHierarchyUpdate(c Candidate, childCount int64) *ValidationError {
	if err := ValidateHierarchy(c); err != nil {
		return err
	}
	if c.Parent != nil && c.TaskID != 0 && c.Parent.ID == c.TaskID {
		return newValidationError("parent", MsgOwnParent)
	}
	if childCount > 0 && (c.Issue != models.IssueEpic || c.Parent != nil) {
		return newValidationError("issue", MsgSubtaskWithChildren)
	}
	return nil
}
