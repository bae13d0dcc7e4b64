package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. frame_rejected).
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldHost is the audio host application display name.
	FieldHost = "host"
	// FieldChannel is the channel socket path.
	FieldChannel = "channel"
	// FieldConnID identifies one served channel connection.
	FieldConnID = "conn_id"
	// FieldDetails and FieldState carry presence event fields.
	FieldDetails = "details"
	FieldState   = "state"
)
