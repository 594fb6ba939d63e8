package discovery

// Level is the severity of a user-facing notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a transient message for the user about how a cycle went.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notice messages.
const (
	MsgLocationDetected = "Location detected"
	MsgFallbackLocation = "Using fallback location."
	MsgNoData           = "No data available"
)
