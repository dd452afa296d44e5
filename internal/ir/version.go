package ir

// Version constants for the op journal and engine.
const (
	// JournalVersion is the version of the recorded op payload format.
	JournalVersion = "1"

	// EngineVersion is the connectlab engine version.
	EngineVersion = "0.1.0"
)
