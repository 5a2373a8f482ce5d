package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TaskStatus is stored as its ordinal and serialized as its label.
type TaskStatus int

const (
	TaskStatusDraft TaskStatus = iota + 1
	TaskStatusReady
	TaskStatusToDo
	TaskStatusInProgress
	TaskStatusReview
	TaskStatusComplete
	TaskStatusArchive
)

var taskStatusLabels = map[TaskStatus]string{
	TaskStatusDraft:      "DRAFT",
	TaskStatusReady:      "READY",
	TaskStatusToDo:       "TO_DO",
	TaskStatusInProgress: "IN_PROGRESS",
	TaskStatusReview:     "REVIEW",
	TaskStatusComplete:   "COMPLETE",
	TaskStatusArchive:    "ARCHIVE",
}

// Issue distinguishes epics from subtasks.
type Issue int

const (
	IssueEpic Issue = iota + 1
	IssueSubtask
)

var issueLabels = map[Issue]string{
	IssueEpic:    "EPIC",
	IssueSubtask: "SUBTASK",
}

// ProjectStatus tracks the lifecycle of a project.
type ProjectStatus int

const (
	ProjectStatusDraft ProjectStatus = iota + 1
	ProjectStatusInProgress
	ProjectStatusComplete
)

var projectStatusLabels = map[ProjectStatus]string{
	ProjectStatusDraft:      "DRAFT",
	ProjectStatusInProgress: "IN_PROGRESS",
	ProjectStatusComplete:   "COMPLETE",
}

func (s TaskStatus) String() string { return label(taskStatusLabels, s) }

// IsValid reports whether s is one of the declared statuses.
func (s TaskStatus) IsValid() bool {
	_, ok := taskStatusLabels[s]
	return ok
}

func (i Issue) String() string { return label(issueLabels, i) }

func (i Issue) IsValid() bool {
	_, ok := issueLabels[i]
	return ok
}

func (s ProjectStatus) String() string { return label(projectStatusLabels, s) }

func (s ProjectStatus) IsValid() bool {
	_, ok := projectStatusLabels[s]
	return ok
}

// ParseTaskStatus converts a label such as "IN_PROGRESS" into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	return parse(taskStatusLabels, s, "task status")
}

// ParseIssue converts "EPIC" or "SUBTASK" into an Issue.
func ParseIssue(s string) (Issue, error) {
	return parse(issueLabels, s, "issue")
}

// ParseProjectStatus converts a label into a ProjectStatus.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	return parse(projectStatusLabels, s, "project status")
}

func (s TaskStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	return unmarshalLabel(data, s, ParseTaskStatus)
}

func (i Issue) MarshalJSON() ([]byte, error) { return json.Marshal(i.String()) }

func (i *Issue) UnmarshalJSON(data []byte) error {
	return unmarshalLabel(data, i, ParseIssue)
}

func (s ProjectStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *ProjectStatus) UnmarshalJSON(data []byte) error {
	return unmarshalLabel(data, s, ParseProjectStatus)
}

func label[T ~int](labels map[T]string, v T) string {
	if l, ok := labels[v]; ok {
		return l
	}
	return fmt.Sprintf("UNKNOWN(%d)", v)
}

func parse[T ~int](labels map[T]string, s, kind string) (T, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for v, l := range labels {
		if l == want {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%q is not a valid %s", s, kind)
}

func unmarshalLabel[T any](data []byte, dst *T, parseFn func(string) (T, error)) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := parseFn(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
