package support

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/celltraj/internal/testutil"
)

// RegisterSceneSteps registers the steps that build input workspaces.
func (testCtx *TestContext) RegisterSceneSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a workspace with two touching cells$`, testCtx.aWorkspaceWithTwoTouchingCells)
	sc.Step(`^the mask directory is missing$`, testCtx.theMaskDirectoryIsMissing)
}

// RegisterCommandSteps registers command execution steps.
func (testCtx *TestContext) RegisterCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.Run)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the error should contain "([^"]*)"$`, testCtx.theErrorShouldContain)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
}

// RegisterOutputSteps registers the steps that inspect written artifacts.
func (testCtx *TestContext) RegisterOutputSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
	sc.Step(`^"([^"]*)" should have (\d+) records? with (\d+) columns$`, testCtx.csvShouldHaveRecords)
	sc.Step(`^column "([^"]*)" of "([^"]*)" should be "([^"]*)"$`, testCtx.csvColumnShouldBe)
	sc.Step(`^the JSON output should list (\d+) contours$`, testCtx.theJSONOutputShouldListContours)
	sc.Step(`^the image "([^"]*)" should be (\d+)x(\d+)$`, testCtx.theImageShouldBe)
}

func (testCtx *TestContext) aWorkspaceWithTwoTouchingCells() error {
	return testutil.TwoTouchingSquares().WriteDir(testCtx.Dir)
}

func (testCtx *TestContext) theMaskDirectoryIsMissing() error {
	return os.RemoveAll(testCtx.Path("masks"))
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("command %q failed: %w\nstderr: %s", testCtx.LastCommand, testCtx.LastError, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("command %q succeeded, expected failure", testCtx.LastCommand)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldContain(text string) error {
	if testCtx.LastError == nil || !strings.Contains(testCtx.LastError.Error(), text) {
		return fmt.Errorf("expected error containing %q, got %v", text, testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(text string) error {
	if !strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(rel string) error {
	if !testutil.FileExists(testCtx.Path(rel)) {
		return fmt.Errorf("file %s does not exist", rel)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldNotExist(rel string) error {
	if testutil.FileExists(testCtx.Path(rel)) {
		return fmt.Errorf("file %s exists", rel)
	}
	return nil
}

func (testCtx *TestContext) readCSV(rel string) ([][]string, error) {
	f, err := os.Open(testCtx.Path(rel))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rel, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s has no header", rel)
	}
	return rows, nil
}

func (testCtx *TestContext) csvShouldHaveRecords(rel string, records, columns int) error {
	rows, err := testCtx.readCSV(rel)
	if err != nil {
		return err
	}
	if got := len(rows) - 1; got != records {
		return fmt.Errorf("%s has %d records, want %d", rel, got, records)
	}
	for i, row := range rows {
		if len(row) != columns {
			return fmt.Errorf("%s row %d has %d columns, want %d", rel, i, len(row), columns)
		}
	}
	return nil
}

func (testCtx *TestContext) csvColumnShouldBe(column, rel, want string) error {
	rows, err := testCtx.readCSV(rel)
	if err != nil {
		return err
	}
	if len(rows) < 2 {
		return fmt.Errorf("%s has no records", rel)
	}
	for i, name := range rows[0] {
		if name == column {
			if got := rows[1][i]; got != want {
				return fmt.Errorf("%s column %s is %q, want %q", rel, column, got, want)
			}
			return nil
		}
	}
	return fmt.Errorf("%s has no column %s", rel, column)
}

func (testCtx *TestContext) theJSONOutputShouldListContours(n int) error {
	var got []map[string]any
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &got); err != nil {
		return fmt.Errorf("output is not JSON: %w", err)
	}
	if len(got) != n {
		return fmt.Errorf("got %d contours, want %d", len(got), n)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldBe(rel, w, h string) error {
	f, err := os.Open(testCtx.Path(rel))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", rel, err)
	}
	if got := strconv.Itoa(cfg.Width) + "x" + strconv.Itoa(cfg.Height); got != w+"x"+h {
		return fmt.Errorf("%s is %s, want %sx%s", rel, got, w, h)
	}
	return nil
}
