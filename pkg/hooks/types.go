package hooks

// HookType identifies when a hook script runs during the model lifecycle.
type HookType string

// Supported hook types.
const (
	PostInstall HookType = "post-install"
	PreRemove   HookType = "pre-remove"
)

// Hook represents a hook script with its type and content.
type Hook struct {
	Type    HookType
	Content string
}

// HookContext contains information passed to hook scripts.
type HookContext struct {
	ModelReference string
	VariantLabel   string
	ModelPath      string
	ModelsDir      string
	Vars           map[string]interface{}
}

// HookManager defines the interface for managing hook scripts.
type HookManager interface {
	// Execute runs the specified hook type with the given context
	Execute(hookType HookType, ctx HookContext) error

	// AddHook adds a new hook
	AddHook(hook Hook) error

	// RemoveHook removes a hook of the specified type
	RemoveHook(hookType HookType) error

	// HasHook checks if a hook of the specified type exists
	HasHook(hookType HookType) bool
}
