// Package index wraps the external bowtie2-build tool that turns a staged
// FASTA file into an alignment index.
package index

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultTool is the indexer binary resolved via PATH when no explicit
// location is configured.
const DefaultTool = "bowtie2-build"

// CommandResult captures the output of one external command invocation.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner abstracts external process execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// ExecRunner is the real runner backed by os/exec.
type ExecRunner struct{}

// Run executes the command and captures stdout, stderr and the exit code.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	return result, err
}

// Error is a fatal indexing failure carrying the tool's stderr for operators.
type Error struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return fmt.Sprintf("index build failed (exit %d): %s", e.ExitCode, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("index build failed: %v", e.Err)
	}
	return fmt.Sprintf("index build failed (exit %d)", e.ExitCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Builder invokes bowtie2-build against a staged FASTA file.
type Builder struct {
	toolPath string
	runner   CommandRunner
}

// NewBuilder returns a Builder using the bowtie2-build binary on PATH.
func NewBuilder() *Builder {
	return NewBuilderWith(DefaultTool, ExecRunner{})
}

// NewBuilderWith returns a Builder with an explicit tool location and runner.
func NewBuilderWith(toolPath string, runner CommandRunner) *Builder {
	if toolPath == "" {
		toolPath = DefaultTool
	}
	return &Builder{toolPath: toolPath, runner: runner}
}

// Build runs the indexer with at most threads build threads, then verifies
// index files exist under indexPrefix. Callers mark the subtraction ready
// only after Build returns nil.
func (b *Builder) Build(ctx context.Context, fastaPath, indexPrefix string, threads int) error {
	if threads < 1 {
		threads = 1
	}

	result, err := b.runner.Run(ctx, b.toolPath, buildArgs(fastaPath, indexPrefix, threads)...)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return &Error{ExitCode: result.ExitCode, Stderr: result.Stderr, Err: err}
	}

	files, err := Files(indexPrefix)
	if err != nil {
		return &Error{ExitCode: result.ExitCode, Stderr: result.Stderr, Err: err}
	}
	if len(files) == 0 {
		return &Error{
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			Err:      errors.New("indexer reported success but wrote no index files"),
		}
	}
	return nil
}

// buildArgs assembles the bowtie2-build command line.
func buildArgs(fastaPath, indexPrefix string, threads int) []string {
	return []string{
		"-f",
		"--threads", strconv.Itoa(threads),
		fastaPath,
		indexPrefix,
	}
}

// Files lists the index files sharing prefix, covering the small .bt2 and
// large .bt2l layouts.
func Files(prefix string) ([]string, error) {
	small, err := filepath.Glob(prefix + ".*.bt2")
	if err != nil {
		return nil, err
	}
	large, err := filepath.Glob(prefix + ".*.bt2l")
	if err != nil {
		return nil, err
	}
	return append(small, large...), nil
}
