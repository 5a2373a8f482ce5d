package services

import "errors"

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrProjectCodeTaken = errors.New("project code already exists")
	ErrTaskNotFound     = errors.New("task not found")
	ErrParentNotFound   = errors.New("parent task not found")

	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")

	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)
