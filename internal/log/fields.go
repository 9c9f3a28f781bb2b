package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldGoalID         = "goal_id"
	FieldGoalName       = "goal_name"
	FieldGoalStatus     = "goal_status"
	FieldTransactionID  = "transaction_id"
	FieldContributionID = "contribution_id"
	FieldAccountID      = "account_id"
	FieldAmountCents    = "amount_cents"
	FieldRoundupCents   = "roundup_cents"
	FieldOverflowCents  = "overflow_cents"
	FieldSavedCents     = "saved_cents"
	FieldMerchant       = "merchant"
	FieldFeedBackend    = "feed_backend"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentEngine      = "engine"
	ComponentGoals       = "goals"
	ComponentStorage     = "storage"
	ComponentIdempotency = "idempotency"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentFeed        = "feed"
	ComponentCache       = "cache"
	ComponentRateLimit   = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpRead       = "read"
	OpUpdate     = "update"
	OpList       = "list"
	OpRoundup    = "roundup"
	OpContribute = "contribute"
	OpMerge      = "merge"
	OpSync       = "sync"
	OpPublish    = "publish"
	OpConsume    = "consume"
	OpValidate   = "validate"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithGoal adds goal-related fields
func (f LogFields) WithGoal(id, name string, savedCents int64) LogFields {
	f[FieldGoalID] = id
	f[FieldGoalName] = name
	f[FieldSavedCents] = savedCents
	return f
}

// WithContribution adds contribution-related fields
func (f LogFields) WithContribution(id, goalID, transactionID string, amountCents int64) LogFields {
	f[FieldContributionID] = id
	f[FieldGoalID] = goalID
	if transactionID != "" {
		f[FieldTransactionID] = transactionID
	}
	f[FieldAmountCents] = amountCents
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
