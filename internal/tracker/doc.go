// Package tracker holds the rules that keep task codes and the epic/subtask
// hierarchy consistent.
//
// A task code has the form <project-code>-<n>. NextCode picks n for a new task,
// PropagateCodeRename rewrites every code of a project after its code changes,
// and ValidateHierarchy / ValidateHierarchyUpdate guard the parent relation.
// None of these functions open transactions; callers run them inside the
// transaction that persists the result.
package tracker
