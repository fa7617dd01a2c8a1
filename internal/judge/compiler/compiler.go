// Package compiler implements the Compiler Driver (§4.2): it turns a
// submission's source into an executable, bounded by a fixed timeout and
// isolated only by a working directory — not by the sandbox, since
// compilation never executes submitted logic.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"judgecore/internal/judge/model"
	"judgecore/internal/judge/sandbox/result"

	"github.com/google/shlex"
)

// diagnosticCapBytes bounds how much of a compiler's stderr/stdout is kept
// for the stored compile log; compilers can be extremely chatty on
// template-heavy C++ errors.
const diagnosticCapBytes = 64 * 1024

// languageSpec names one language's compile step. Interpreted languages
// (Python) have an empty Build, meaning Driver.Compile is a no-op that
// immediately succeeds.
type languageSpec struct {
	SourceFile string
	Build      func(workDir, sourcePath, executablePath string, extraFlags []string) []string
}

var languages = map[model.Language]languageSpec{
	model.LanguagePython: {SourceFile: "main.py"},
	model.LanguageC: {
		SourceFile: "main.c",
		Build: func(workDir, sourcePath, executablePath string, extraFlags []string) []string {
			args := []string{"gcc", "-O2", "-static", "-o", executablePath, sourcePath}
			return append(args, extraFlags...)
		},
	},
	model.LanguageCpp: {
		SourceFile: "main.cpp",
		Build: func(workDir, sourcePath, executablePath string, extraFlags []string) []string {
			args := []string{"g++", "-O2", "-std=c++17", "-static", "-o", executablePath, sourcePath}
			return append(args, extraFlags...)
		},
	},
}

// Driver runs the compile step for a submission's language.
type Driver struct {
	timeout time.Duration
}

// New builds a Driver with the given compile timeout; §6 defaults this to
// 15s.
func New(timeout time.Duration) *Driver {
	return &Driver{timeout: timeout}
}

// SourceFileName returns the conventional source file name for language.
// The orchestrator uses only its extension, writing the submitted source
// to the workspace's SourcePath for that extension.
func SourceFileName(language model.Language) (string, error) {
	spec, ok := languages[language]
	if !ok {
		return "", fmt.Errorf("unsupported language: %s", language)
	}
	return spec.SourceFile, nil
}

// Compile builds sourcePath into executablePath inside workDir. extraFlags
// is the problem's ExtraCompileFlags, already a single shell-like string;
// it is split into argv with shlex the way a human would type it on a
// command line.
func (d *Driver) Compile(ctx context.Context, language model.Language, workDir, sourcePath, executablePath, extraFlags string) (result.CompileResult, error) {
	spec, ok := languages[language]
	if !ok {
		return result.CompileResult{}, fmt.Errorf("unsupported language: %s", language)
	}
	if spec.Build == nil {
		// Interpreted language: nothing to build, the executable path is
		// simply the source file run through its interpreter at execution
		// time.
		return result.CompileResult{OK: true}, nil
	}

	flags, err := shlex.Split(extraFlags)
	if err != nil {
		return result.CompileResult{}, fmt.Errorf("parse extra compile flags: %w", err)
	}

	argv := spec.Build(workDir, sourcePath, executablePath, flags)

	timeoutCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, argv[0], argv[1:]...)
	cmd.Dir = workDir
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	runErr := cmd.Run()
	diag := combined.Bytes()
	if len(diag) == 0 && runErr != nil {
		// The compiler never produced output at all (e.g. the toolchain
		// binary itself is missing) — fall back to the exec error so the
		// diagnostic is never silently empty on a real failure.
		diag = []byte(runErr.Error())
	}
	if len(diag) > diagnosticCapBytes {
		diag = diag[:diagnosticCapBytes]
	}

	res := result.CompileResult{
		Cmd:        argv,
		Diagnostic: string(diag),
		TimedOut:   timeoutCtx.Err() == context.DeadlineExceeded,
	}
	if runErr == nil {
		res.OK = true
		return res, nil
	}
	return res, nil
}
