package log

// Field names shared across the codebase.
const (
	FieldComponent = "component"
	FieldUserID    = "user_id"
	FieldChannelID = "channel_id"
	FieldSheetID   = "sheet_id"
	FieldCategory  = "category"
	FieldAmount    = "amount"
	FieldEmail     = "email"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldPath      = "path"
	FieldQueue     = "queue"
	FieldExchange  = "exchange"
)

// Component names.
const (
	ComponentApp      = "app"
	ComponentBot      = "bot"
	ComponentSheets   = "sheets"
	ComponentRegistry = "registry"
	ComponentEvents   = "events"
	ComponentJournal  = "journal"
	ComponentWorker   = "worker"
)
