// Package run invokes external build tools and reports typed results.
//
// Every invocation is explicit about its working directory and about the
// environment variables it adds on top of the inherited environment; nothing
// is passed through ambient process state. A non-zero exit is surfaced as an
// error carrying the tool's exit status, never swallowed.
package run

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/codeskyblue/go-sh"
)

// Result describes one finished external command.
type Result struct {
	// Command is the command line that was run, for diagnostics.
	Command string
	// Stdout is the captured standard output, trimmed. Empty unless the
	// command was run with Capture.
	Stdout string
	// Status is the command's exit status; -1 when the command could not
	// be started at all.
	Status int
}

// Runner executes commands in a fixed directory with a fixed set of extra
// environment variables. The zero value runs in the current directory with
// no extra environment.
type Runner struct {
	// Dir is the working directory for every command.
	Dir string
	// Env is added to the inherited environment of every command.
	Env map[string]string
	// Echo prints each command line before running it.
	Echo bool
}

// Run executes the command, streaming its output to the process's stdout
// and stderr.
func (r *Runner) Run(name string, args ...string) (Result, error) {
	s := r.session()
	err := s.Command(name, anyArgs(args)...).Run()
	return r.result(name, args, "", err)
}

// Capture executes the command and captures its standard output. Standard
// error still streams through, so tool diagnostics stay visible.
func (r *Runner) Capture(name string, args ...string) (Result, error) {
	s := r.session()
	out, err := s.Command(name, anyArgs(args)...).Output()
	return r.result(name, args, strings.TrimSpace(string(out)), err)
}

func (r *Runner) session() *sh.Session {
	s := sh.NewSession()
	s.ShowCMD = r.Echo
	if r.Dir != "" {
		s.SetDir(r.Dir)
	}
	for k, v := range r.Env {
		s.SetEnv(k, v)
	}
	return s
}

func (r *Runner) result(name string, args []string, stdout string, err error) (Result, error) {
	res := Result{
		Command: commandLine(name, args),
		Stdout:  stdout,
		Status:  exitStatus(err),
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", res.Command, err)
	}
	return res, nil
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func anyArgs(args []string) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
