package wizard

// FlowError is a member of the engine's error taxonomy. The Code method is
// picked up by the router when deriving err_code attributes for logs.
type FlowError struct {
	code string
	msg  string
}

func newFlowError(code, msg string) *FlowError {
	return &FlowError{code: code, msg: msg}
}

// Error returns the human-readable description.
func (e *FlowError) Error() string { return e.msg }

// Code returns the stable machine-readable error code.
func (e *FlowError) Code() string { return e.code }

var (
	// ErrSceneNotFound indicates an event or directive referenced a scene
	// that was never registered. Configuration error, fatal to the interaction.
	ErrSceneNotFound = newFlowError("SCENE_NOT_FOUND", "wizard: scene not registered")

	// ErrInvalidJumpTarget indicates a jump directive named a step that does
	// not exist in the active scene. The session is left unchanged.
	ErrInvalidJumpTarget = newFlowError("INVALID_JUMP_TARGET", "wizard: jump target not in scene")

	// ErrNoPriorStep indicates a back directive at step 0.
	ErrNoPriorStep = newFlowError("NO_PRIOR_STEP", "wizard: no prior step to go back to")

	// ErrStepOverflow indicates a continue directive past the last step.
	// A scene must end with a terminal directive, not run off the end.
	ErrStepOverflow = newFlowError("STEP_OVERFLOW", "wizard: continue past last step")

	// ErrStoreUnavailable wraps transient session store failures. The session
	// is left untouched so the user can repeat the exact same input.
	ErrStoreUnavailable = newFlowError("STORE_UNAVAILABLE", "wizard: session store unavailable")

	// ErrRegistryFrozen indicates a registration attempt after dispatching started.
	ErrRegistryFrozen = newFlowError("REGISTRY_FROZEN", "wizard: registry is frozen")
)
