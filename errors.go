package agentgraph

import (
	"errors"
	"fmt"
)

// Error codes for specific failure categories.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeOrchestration  = "ORCHESTRATION_ERROR"
	ErrCodeDataProcessing = "DATA_PROCESSING_ERROR"
	ErrCodeDecisionMaking = "DECISION_MAKING_ERROR"
	ErrCodeCommunication  = "COMMUNICATION_ERROR"
	ErrCodeGateway        = "GATEWAY_ERROR"
	ErrCodeSearch         = "SEARCH_ERROR"
	ErrCodeGraphExecution = "GRAPH_EXECUTION_ERROR"
	ErrCodeConfiguration  = "CONFIGURATION_ERROR"
	ErrCodeCancelled      = "EXECUTION_CANCELLED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// AgentError is the error type for all agentgraph failures.
type AgentError struct {
	Code    string // A machine-readable error code (e.g., ErrCodeGateway)
	Agent   string // The agent or component where the error occurred
	Message string // A human-readable message
	Cause   error  // The underlying error, if any
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Agent, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Agent, e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error, allowing for error chaining.
func (e *AgentError) Unwrap() error {
	return e.Cause
}

// NewError creates a new AgentError.
func NewError(code, agent, message string, cause error) *AgentError {
	return &AgentError{
		Code:    code,
		Agent:   agent,
		Message: message,
		Cause:   cause,
	}
}

// Specific error constructors

func NewValidationError(agent, message string) *AgentError {
	return NewError(ErrCodeValidation, agent, message, nil)
}

func NewOrchestrationError(message string, cause error) *AgentError {
	return NewError(ErrCodeOrchestration, AgentOrchestrator, message, cause)
}

func NewDataProcessingError(message string, cause error) *AgentError {
	return NewError(ErrCodeDataProcessing, AgentDataProcessor, message, cause)
}

func NewDecisionMakingError(message string, cause error) *AgentError {
	return NewError(ErrCodeDecisionMaking, AgentDecisionMaker, message, cause)
}

func NewCommunicationError(message string, cause error) *AgentError {
	return NewError(ErrCodeCommunication, AgentCommunicator, message, cause)
}

func NewGatewayError(message string, cause error) *AgentError {
	return NewError(ErrCodeGateway, "gateway", message, cause)
}

func NewSearchError(message string, cause error) *AgentError {
	return NewError(ErrCodeSearch, "search", message, cause)
}

func NewGraphExecutionError(agent, message string, cause error) *AgentError {
	return NewError(ErrCodeGraphExecution, agent, message, cause)
}

func NewConfigurationError(message string, cause error) *AgentError {
	return NewError(ErrCodeConfiguration, "initialization", message, cause)
}

func NewCancelledError(agent string, cause error) *AgentError {
	return NewError(ErrCodeCancelled, agent, "execution cancelled", cause)
}

func NewInternalError(agent, message string, cause error) *AgentError {
	return NewError(ErrCodeInternal, agent, message, cause)
}

// IsAgentError reports whether err is (or wraps) an AgentError.
func IsAgentError(err error) bool {
	var ae *AgentError
	return errors.As(err, &ae)
}

// AsAgentError extracts the AgentError from err's chain, if present.
func AsAgentError(err error) (*AgentError, bool) {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
