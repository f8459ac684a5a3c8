package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/celltraj/internal/source"
	"github.com/MeKo-Tech/celltraj/internal/testutil"
	"github.com/MeKo-Tech/celltraj/internal/trajectory"
)

// execute runs a fresh command tree and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeRoot(t, NewRootCommand(), args...)
}

func executeRoot(t *testing.T, root *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// sceneDir writes the two-squares scene and moves into it.
func sceneDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, testutil.TwoTouchingSquares().WriteDir(dir))
	t.Chdir(dir)
	return dir
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "celltraj", root.Use)
	assert.NotEmpty(t, root.Short)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"extract", "contours", "neighbors", "overlay"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandHelpAndVersion(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands:")

	out, _, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "celltraj version dev")
}

func TestRootCommandInvalidConfig(t *testing.T) {
	sceneDir(t)
	_, _, err := execute(t, "contours", "--log-level", "shout")
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = execute(t, "contours", "--config", "missing.yaml")
	assert.ErrorContains(t, err, "does not exist")
}

func TestExtract(t *testing.T) {
	dir := sceneDir(t)

	out, stderr, err := execute(t, "extract", "--out", "features", "--workers", "2")
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "assembled 2, skipped 0, failed 0, records 2")

	csv := testutil.ReadFile(t, filepath.Join(dir, "features", "ii=0.csv"))
	assert.Contains(t, csv, "t,x,y,A,l1,l2,theta,P,c1,c2,c3,neigh_0")
	assert.Contains(t, csv, "\n0,12,12,25,5,5,0,16,200,100,50,1,-1,")
	assert.Contains(t, csv, ",-1,10,-1,")

	out, _, err = execute(t, "extract", "--out", "features")
	require.NoError(t, err)
	assert.Contains(t, out, "assembled 0, skipped 2")
}

func TestExtract_SingleCellJSON(t *testing.T) {
	dir := sceneDir(t)

	_, stderr, err := execute(t, "extract", "--cell", "1", "--format", "json", "--include-id", "--out", "units")
	require.NoError(t, err, stderr)

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(testutil.ReadFile(t, filepath.Join(dir, "units", "ii=1.json"))), &records))
	require.Len(t, records, 1)
	assert.InDelta(t, 1, records[0]["id"], 0)
	assert.False(t, testutil.FileExists(filepath.Join(dir, "units", "ii=0.json")))

	_, _, err = execute(t, "extract", "--cell", "7")
	assert.ErrorContains(t, err, "out of range")
}

type recordingTracker struct {
	trajs  []*trajectory.Trajectory
	frames int
	radius float64
	calls  int
}

func (r *recordingTracker) Track(_ context.Context, _ source.MaskProvider, frames int, radius float64) ([]*trajectory.Trajectory, error) {
	r.calls++
	r.frames, r.radius = frames, radius
	return r.trajs, nil
}

func TestExtract_MissingTrajectoriesWithoutTracker(t *testing.T) {
	dir := sceneDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "trajectories.json")))

	_, _, err := execute(t, "extract", "--out", "features")
	assert.ErrorContains(t, err, "no tracker configured")
}

func TestExtract_TrackerUsesTrackingConfig(t *testing.T) {
	dir := sceneDir(t)
	path := filepath.Join(dir, "trajectories.json")
	set, err := trajectory.Load(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	t.Setenv("CELLTRAJ_TRACKING_EXPECTED_DIAMETER", "10")
	t.Setenv("CELLTRAJ_TRACKING_SEARCH_SCALE", "1.5")
	tracker := &recordingTracker{trajs: set.Trajectories()}

	out, stderr, err := executeRoot(t, newRootCommand(tracker), "extract", "--out", "features")
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "assembled 2")
	assert.Equal(t, 1, tracker.calls)
	assert.Equal(t, 1, tracker.frames)
	assert.InDelta(t, 15.0, tracker.radius, 1e-9)
	assert.True(t, testutil.FileExists(path), "tracked trajectories are persisted")

	_, _, err = executeRoot(t, newRootCommand(tracker), "extract", "--out", "features")
	require.NoError(t, err)
	assert.Equal(t, 1, tracker.calls, "a persisted file is loaded, not re-tracked")
}

func TestExtract_MissingMasks(t *testing.T) {
	dir := sceneDir(t)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "masks")))

	out, _, err := execute(t, "extract", "--out", "features")
	require.Error(t, err)
	assert.Contains(t, out, "failed 2")
	assert.False(t, testutil.FileExists(filepath.Join(dir, "features", "ii=0.csv")))
}

func TestContours(t *testing.T) {
	sceneDir(t)

	out, _, err := execute(t, "contours", "--t", "0", "--format", "json")
	require.NoError(t, err)

	var got []contourJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, contourJSON{Label: 1, Points: 16, Bounds: [4]int{10, 10, 15, 15}}, got[0])
	assert.Equal(t, 2, got[1].Label)

	out, _, err = execute(t, "contours")
	require.NoError(t, err)
	assert.Contains(t, out, "LABEL")

	_, _, err = execute(t, "contours", "--t", "9")
	assert.Error(t, err)
}

func TestNeighbors(t *testing.T) {
	sceneDir(t)

	out, _, err := execute(t, "neighbors", "--t", "0", "--cell", "0", "--format", "json")
	require.NoError(t, err)

	var got neighborsJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.InDelta(t, 15.0, got.Radius, 1e-9)
	assert.Equal(t, []candidateJSON{{Cell: 1, Adjacent: true, ContactPoints: 10}}, got.Candidates)

	out, _, err = execute(t, "neighbors", "--cell", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "search radius 15.00")
}

func TestOverlay(t *testing.T) {
	dir := sceneDir(t)
	path := filepath.Join(dir, "overlay.png")

	_, stderr, err := execute(t, "overlay", "--t", "0", "--out", path, "--window", "5,24,5,24")
	require.NoError(t, err, stderr)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 20, cfg.Height)

	_, _, err = execute(t, "overlay")
	assert.ErrorContains(t, err, "--out is required")
}
