package dao

// Version constants for the persisted model and the engine.
const (
	// SchemaVersion is the event/action encoding version.
	SchemaVersion = "1"

	// EngineVersion is the treasury engine version.
	EngineVersion = "0.1.0"
)
