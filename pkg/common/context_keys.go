package common

type contextKey string

// Locals keys shared between the embedding application and the pipeline
// middlewares.
const (
	SessionContextKey  contextKey = "session_id"
	ActorContextKey    contextKey = "actor_id"
	RowCountContextKey contextKey = "row_count"

	AdminSubjectContextKey contextKey = "admin_subject"
)
