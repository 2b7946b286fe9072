package tools

// Error type identifiers carried back to the model in tool results.
// The model uses them to correct its next call instead of aborting the turn.
const (
	ErrTypeInvalidArguments = "InvalidArguments"
	ErrTypeWineNotFound     = "WineNotFound"
	ErrTypeFriendNotFound   = "FriendNotFound"
	ErrTypeUnknownTool      = "UnknownTool"
	ErrTypeInternal         = "Internal"
)

// ToolError defines a structured error format for model consumption.
// It is serialized into the tool result instead of failing the exchange, so
// a single bad call never takes down the whole conversation turn.
type ToolError struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// Error implements the error interface.
// Uses pointer receiver to avoid unnecessary copying and ensure consistency.
func (e *ToolError) Error() string {
	if e == nil {
		return "<nil ToolError>"
	}
	if e.ErrorType == "" && e.Message == "" {
		return "<empty ToolError>"
	}
	if e.ErrorType == "" {
		return e.Message
	}
	if e.Message == "" {
		return e.ErrorType
	}
	return e.ErrorType + ": " + e.Message
}

// invalidArgs builds an InvalidArguments error.
func invalidArgs(msg string) *ToolError {
	return &ToolError{ErrorType: ErrTypeInvalidArguments, Message: msg}
}
