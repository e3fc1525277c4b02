// Package runner executes the target project's test and lint commands.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/danielpatrickdp/codeloop/internal/quality"
	"go.uber.org/zap"
)

// #region config
// Config names the commands to run in the project directory.
type Config struct {
	TestCommand []string      `koanf:"test_command" validate:"required,min=1"`
	LintCommand []string      `koanf:"lint_command" validate:"required,min=1"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
}

// DefaultConfig runs npm test and npx eslint with a two minute limit each.
func DefaultConfig() Config {
	return Config{
		TestCommand: []string{"npm", "test"},
		LintCommand: []string{"npx", "eslint", "."},
		Timeout:     2 * time.Minute,
	}
}
// #endregion config

// #region results
// TestResult is the outcome of the test command.
type TestResult struct {
	Passed  bool
	Skipped bool // npm project without a test script
	Output  string
}

// LintResult is the outcome of the lint command. Ran is false when the linter
// could not be started; Errors is then meaningless.
type LintResult struct {
	Errors int
	Ran    bool
	Output string
}
// #endregion results

// #region runner
// Runner runs commands with a per-command timeout.
type Runner struct {
	cfg      Config
	logger   *zap.Logger
	lookPath func(string) (string, error)
}

// New returns a Runner. A nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Runner{cfg: cfg, logger: logger, lookPath: exec.LookPath}
}
// #endregion runner

// ErrTimeout is returned by RunLinter when the lint command outlives the
// configured timeout. A timed-out test run is reported as failed instead.
var ErrTimeout = errors.New("command timed out")

// #region run-tests
// RunTests runs the test command in dir. A missing executable or a non-zero
// exit is a failed run, not an error; only a cancelled context is returned.
func (r *Runner) RunTests(ctx context.Context, dir string) (TestResult, error) {
	if r.cfg.TestCommand[0] == "npm" && !hasTestScript(dir) {
		r.logger.Info("no test script in package.json, treating tests as passed", zap.String("dir", dir))
		return TestResult{Passed: true, Skipped: true}, nil
	}

	out, err := r.run(ctx, dir, r.cfg.TestCommand)
	if ctx.Err() != nil {
		return TestResult{}, ctx.Err()
	}
	if err != nil {
		r.logger.Info("tests failed", zap.Error(err))
		return TestResult{Passed: false, Output: out}, nil
	}
	return TestResult{Passed: true, Output: out}, nil
}
// #endregion run-tests

// #region run-linter
// RunLinter runs the lint command and counts error lines. The linter exiting
// non-zero because it found errors is expected. A lint run that times out has
// no trustworthy count and returns an error matching ErrTimeout.
func (r *Runner) RunLinter(ctx context.Context, dir string) (LintResult, error) {
	out, err := r.run(ctx, dir, r.cfg.LintCommand)
	if ctx.Err() != nil {
		return LintResult{}, ctx.Err()
	}
	if errors.Is(err, ErrTimeout) {
		r.logger.Warn("linter timed out", zap.Strings("command", r.cfg.LintCommand), zap.Duration("timeout", r.cfg.Timeout))
		return LintResult{Ran: true, Output: out}, err
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		r.logger.Warn("linter unavailable", zap.Strings("command", r.cfg.LintCommand), zap.Error(err))
		return LintResult{Ran: false, Output: out}, nil
	}
	return LintResult{Errors: quality.ParseLintErrors(out), Ran: true, Output: out}, nil
}
// #endregion run-linter

func (r *Runner) run(ctx context.Context, dir string, argv []string) (string, error) {
	path, err := r.lookPath(argv[0])
	if err != nil {
		return "", fmt.Errorf("find %s: %w", argv[0], err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Dir = dir
	// grandchildren may hold the output pipe past a kill
	cmd.WaitDelay = time.Second
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	err = cmd.Run()
	r.logger.Debug("command finished",
		zap.Strings("command", argv),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if ctx.Err() == context.DeadlineExceeded {
		return buf.String(), fmt.Errorf("%s: %w after %s", argv[0], ErrTimeout, r.cfg.Timeout)
	}
	return buf.String(), err
}

func hasTestScript(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		// no package.json: let npm report the failure
		return true
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return true
	}
	_, ok := pkg.Scripts["test"]
	return ok
}
