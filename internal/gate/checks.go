package gate

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Check is one runnable quality gate step.
type Check interface {
	Name() string
	Run(ctx context.Context) CheckResult
}

// CommandCheck runs an external command in the project root. A context
// deadline that fires mid-run marks the result as timed out and failed.
type CommandCheck struct {
	Label string
	Dir   string
	Argv  []string
}

func (c *CommandCheck) Name() string { return c.Label }

func (c *CommandCheck) Run(ctx context.Context) CheckResult {
	start := time.Now()
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	out, err := cmd.CombinedOutput()

	res := CheckResult{Name: c.Label, Duration: time.Since(start)}
	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.Detail = "timed out"
		return res
	}
	if err != nil {
		res.Detail = tailOf(string(out), 2000)
		if res.Detail == "" {
			res.Detail = err.Error()
		}
		return res
	}
	res.Passed = true
	return res
}

func tailOf(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// DetectChecks inspects the project root for well-known tool markers and
// returns the checks they imply, lint before tests. Detection is by
// marker file only; whether the tool is installed is the run's problem.
func DetectChecks(root string) []Check {
	var checks []Check
	add := func(label string, argv ...string) {
		checks = append(checks, &CommandCheck{Label: label, Dir: root, Argv: argv})
	}

	if hasAny(root, ".golangci.yml", ".golangci.yaml") {
		add("golangci-lint", "golangci-lint", "run", "./...")
	}
	if hasAny(root, ".eslintrc", ".eslintrc.js", ".eslintrc.cjs", ".eslintrc.json", "eslint.config.js", "eslint.config.mjs") {
		add("eslint", "npx", "eslint", ".")
	}
	if hasRuffConfig(root) {
		add("ruff", "ruff", "check", ".")
	}

	if hasAny(root, "go.mod") {
		add("go test", "go", "test", "./...")
	}
	if script := npmTestScript(root); script != "" {
		add("npm test", "npm", "test", "--silent")
	}
	if hasAny(root, "pytest.ini", "conftest.py") || hasPytestConfig(root) {
		add("pytest", "pytest", "-q")
	}
	return checks
}

func hasAny(root string, names ...string) bool {
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(root, n)); err == nil {
			return true
		}
	}
	return false
}

// npmTestScript returns the test script from package.json, or "" when
// there is none worth running. The npm-init placeholder script exists
// only to fail and is not a real test suite.
func npmTestScript(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	script := pkg.Scripts["test"]
	if script == "" || (strings.Contains(script, "no test specified") && strings.Contains(script, "exit 1")) {
		return ""
	}
	return script
}

func hasRuffConfig(root string) bool {
	if hasAny(root, "ruff.toml", ".ruff.toml") {
		return true
	}
	data, err := os.ReadFile(filepath.Join(root, "pyproject.toml"))
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "[tool.ruff]")
}

func hasPytestConfig(root string) bool {
	data, err := os.ReadFile(filepath.Join(root, "pyproject.toml"))
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "[tool.pytest")
}
