package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yukikurage/umsebenzi/internal/models"
)

// CodeSeparator joins the project code and the numeric suffix.
const CodeSeparator = "-"

// LatestTaskFinder returns the task with the greatest id in a project, or nil
// when the project has no tasks.
type LatestTaskFinder interface {
	FindLatestByProject(ctx context.Context, projectID uint64) (*models.Task, error)
}

// NextCode returns the numeric suffix for the next task created in project.
//
// "Latest" means greatest id, not greatest suffix: deleting the newest task
// lets its suffix be handed out again, while deleting an older one leaves a gap.
func NextCode(ctx context.Context, finder LatestTaskFinder, project *models.Project) (int, error) {
	latest, err := finder.FindLatestByProject(ctx, project.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to find latest task: %w", err)
	}
	if latest == nil {
		return 1, nil
	}

	n, err := ParseSuffix(latest.Code)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// ParseSuffix extracts n from a code of the form <prefix>-<n>.
func ParseSuffix(code string) (int, error) {
	idx := strings.LastIndex(code, CodeSeparator)
	if idx < 0 {
		return 0, &CodeFormatError{Code: code, Reason: "missing separator"}
	}

	n, err := strconv.Atoi(code[idx+len(CodeSeparator):])
	if err != nil {
		return 0, &CodeFormatError{Code: code, Reason: "suffix is not an integer"}
	}
	if n < 1 {
		return 0, &CodeFormatError{Code: code, Reason: "suffix must be positive"}
	}
	return n, nil
}

// ComposeCode builds the full task code.
func ComposeCode(projectCode string, n int) string {
	return projectCode + CodeSeparator + strconv.Itoa(n)
}
