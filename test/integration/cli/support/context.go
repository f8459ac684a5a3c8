// Package support holds the godog step definitions of the CLI feature tests.
package support

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/celltraj/cmd/celltraj/cmd"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Scene workspace with frames/, masks/ and trajectories.json
	Dir string

	LastCommand string
	LastOutput  string
	LastStderr  string
	LastError   error
}

// NewTestContext creates a context with an empty workspace.
func NewTestContext() (*TestContext, error) {
	dir, err := os.MkdirTemp("", "celltraj-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{Dir: dir}, nil
}

// Cleanup removes the workspace.
func (testCtx *TestContext) Cleanup() error {
	if err := os.RemoveAll(testCtx.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.Dir, err)
	}
	return nil
}

// Path resolves a workspace-relative path.
func (testCtx *TestContext) Path(rel string) string {
	return filepath.Join(testCtx.Dir, filepath.FromSlash(rel))
}

// Run executes celltraj in-process with the workspace as input root.
func (testCtx *TestContext) Run(command string) error {
	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "celltraj" {
		args = args[1:]
	}
	args = append(args,
		"--frames", testCtx.Path("frames"),
		"--masks", testCtx.Path("masks"),
		"--trajectories", testCtx.Path("trajectories.json"),
	)
	for i, a := range args {
		args[i] = strings.ReplaceAll(a, "{dir}", testCtx.Dir)
	}

	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	testCtx.LastCommand = command
	testCtx.LastError = root.ExecuteContext(context.Background())
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	return nil
}
