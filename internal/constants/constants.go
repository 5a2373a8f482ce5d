package constants

const (
	// ContextKeyUserID is the key used for the authenticated user in both the session and the gin context.
	ContextKeyUserID = "user_id"
	// ContextKeyProject holds the project loaded by RequireProjectOwner.
	ContextKeyProject = "project"
	// ContextKeyTask holds the task loaded by RequireTaskAccess.
	ContextKeyTask = "task"
	// ContextKeyRequestID holds the request id assigned by RequestID.
	ContextKeyRequestID = "request_id"

	SessionCookieName = "task_session"
	RequestIDHeader   = "X-Request-ID"

	MinPasswordLength = 8

	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	MaxProjectCodeLength = 10
	MaxAIGeneratedTasks  = 20
)
