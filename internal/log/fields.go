package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldOperation    = "operation"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldError        = "error"
	FieldEntityID     = "entity_id"
	FieldEntityName   = "entity_name"
	FieldObligationID = "obligation_id"
	FieldKind         = "kind"
	FieldStatus       = "status"
	FieldAmount       = "amount"
	FieldDueDay       = "due_day"
	FieldAction       = "action"
	FieldAlertCount   = "alert_count"
	FieldStale        = "stale"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentEngine    = "engine"
	ComponentExtract   = "extract"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentDashboard = "dashboard"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpPayment  = "payment"
	OpExtract  = "extract"
	OpSummary  = "summary"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
