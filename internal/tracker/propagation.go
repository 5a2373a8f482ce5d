package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/yukikurage/umsebenzi/internal/models"
)

// ProjectTaskStore is the slice of task persistence the propagator needs.
type ProjectTaskStore interface {
	ListByProject(ctx context.Context, projectID uint64) ([]models.Task, error)
	UpdateCode(ctx context.Context, taskID uint64, code string) error
}

// PropagateCodeRename rewrites the code of every task in project from
// oldCode-<n> to newCode-<n> and returns how many tasks were rewritten.
// It must run in the same transaction as the project update.
func PropagateCodeRename(ctx context.Context, store ProjectTaskStore, project *models.Project, oldCode, newCode string) (int, error) {
	if oldCode == newCode {
		return 0, nil
	}

	tasks, err := store.ListByProject(ctx, project.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list project tasks: %w", err)
	}

	updated := 0
	for _, task := range tasks {
		code, err := RenamePrefix(task.Code, oldCode, newCode)
		if err != nil {
			return updated, err
		}
		if err := store.UpdateCode(ctx, task.ID, code); err != nil {
			return updated, fmt.Errorf("failed to update code of task %d: %w", task.ID, err)
		}
		updated++
	}

	return updated, nil
}

// RenamePrefix swaps the leading project code of a task code. Only the segment
// at index 0 is replaced, never occurrences inside the suffix.
func RenamePrefix(code, oldCode, newCode string) (string, error) {
	prefix := oldCode + CodeSeparator
	if !strings.HasPrefix(code, prefix) {
		return "", &CodeFormatError{Code: code, Reason: fmt.Sprintf("expected prefix %q", prefix)}
	}
	return newCode + CodeSeparator + code[len(prefix):], nil
}
