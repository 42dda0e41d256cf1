package hooks_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/hooks"
)

func TestNewHookManager(t *testing.T) {
	manager := hooks.NewHookManager()
	assert.NotNil(t, manager, "NewHookManager should return a non-nil manager")
}

func TestAddAndExecuteHook(t *testing.T) {
	manager := hooks.NewHookManager()
	ctx := hooks.HookContext{
		ModelReference: "acme/bert:latest@Q4_K_M",
		VariantLabel:   "Q4_K_M",
		ModelPath:      "/models/bert-q4_k_m.gguf",
		Vars: map[string]interface{}{
			"testVar": "testValue",
		},
	}

	err := manager.AddHook(hooks.Hook{
		Type:    hooks.PostInstall,
		Content: `// Simple hook that doesn't return anything`,
	})
	require.NoError(t, err, "AddHook should not return an error for valid hook")

	err = manager.Execute(hooks.PostInstall, ctx)
	require.NoError(t, err, "Execute should not return an error for valid hook")
}

func TestExecuteHook_ContextVariables(t *testing.T) {
	manager := hooks.NewHookManager()

	err := manager.AddHook(hooks.Hook{
		Type: hooks.PostInstall,
		Content: `
if modelReference != "acme/bert:latest@Q4_K_M" {
	err = "unexpected reference: " + modelReference
}
if modelPath == "" {
	err = "model path not set"
}`,
	})
	require.NoError(t, err)

	err = manager.Execute(hooks.PostInstall, hooks.HookContext{
		ModelReference: "acme/bert:latest@Q4_K_M",
		ModelPath:      "/models/bert-q4_k_m.gguf",
	})
	require.NoError(t, err, "hook should see the context variables")
}

func TestExecuteHook_ScriptError(t *testing.T) {
	manager := hooks.NewHookManager()

	err := manager.AddHook(hooks.Hook{
		Type:    hooks.PreRemove,
		Content: `err = "model still in use"`,
	})
	require.NoError(t, err)

	err = manager.Execute(hooks.PreRemove, hooks.HookContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrHookScript)
	assert.Contains(t, err.Error(), "model still in use")
}

func TestExecuteHook_CompileFailure(t *testing.T) {
	manager := hooks.NewHookManager()

	err := manager.AddHook(hooks.Hook{
		Type:    hooks.PostInstall,
		Content: `this is not tengo ((`,
	})
	require.NoError(t, err)

	err = manager.Execute(hooks.PostInstall, hooks.HookContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrHookExecution)
}

func TestHasHook(t *testing.T) {
	manager := hooks.NewHookManager()

	assert.False(t, manager.HasHook(hooks.PostInstall), "Should not have hook before adding")

	err := manager.AddHook(hooks.Hook{
		Type:    hooks.PostInstall,
		Content: `// Test hook`,
	})
	require.NoError(t, err)

	assert.True(t, manager.HasHook(hooks.PostInstall), "Should have hook after adding")
}

func TestRemoveHook(t *testing.T) {
	manager := hooks.NewHookManager()

	err := manager.AddHook(hooks.Hook{
		Type:    hooks.PreRemove,
		Content: `// Test hook`,
	})
	require.NoError(t, err)

	err = manager.RemoveHook(hooks.PreRemove)
	require.NoError(t, err, "RemoveHook should not return an error for existing hook")

	assert.False(t, manager.HasHook(hooks.PreRemove), "Should not have hook after removal")
}

func TestAddHook_EmptyType(t *testing.T) {
	manager := hooks.NewHookManager()

	err := manager.AddHook(hooks.Hook{Content: `// no type`})
	require.Error(t, err)
}

func TestLoadHooksFromDir(t *testing.T) {
	tempDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tempDir, "post-install.tengo"), []byte(`result := "loaded"`), 0o644)
	require.NoError(t, err)
	// Unknown types and foreign extensions are skipped.
	err = os.WriteFile(filepath.Join(tempDir, "on-boot.tengo"), []byte(`x := 1`), 0o644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tempDir, "post-install.sh"), []byte(`echo hi`), 0o644)
	require.NoError(t, err)

	manager := hooks.NewHookManager()
	err = hooks.LoadHooksFromDir(manager, tempDir)
	require.NoError(t, err)

	assert.True(t, manager.HasHook(hooks.PostInstall), "Should have loaded the post-install hook")
	assert.False(t, manager.HasHook(hooks.HookType("on-boot")))
}

func TestLoadHooksFromDir_Missing(t *testing.T) {
	manager := hooks.NewHookManager()
	err := hooks.LoadHooksFromDir(manager, filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err, "a missing hooks directory is not an error")
}
