// Package diagnostics implements the compile-only troubleshooting tools.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"report_wrapper/internal/config"
	"report_wrapper/internal/domain/report"
	"report_wrapper/internal/infrastructure/template"
	"report_wrapper/internal/logging"
	"report_wrapper/internal/storage"

	"github.com/sirupsen/logrus"
)

// Exit codes of the diagnostic tools.
const (
	ExitOK     = 0
	ExitFailed = 1
)

type toolEnv struct {
	source   string
	storage  storage.Storage
	compiler *template.Compiler
}

// newToolEnv открывает локальное хранилище в каталоге шаблона
func newToolEnv(path string, logger *logrus.Logger) (*toolEnv, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	s, err := storage.NewStorageFromConfig(config.Config{
		Storage: config.Storage{Type: storage.StorageTypeLocal, BasePath: filepath.Dir(abs)},
	}, logger)
	if err != nil {
		return nil, err
	}

	return &toolEnv{
		source:   abs,
		storage:  s,
		compiler: template.NewCompiler(s, logger),
	}, nil
}

// Check compiles the single template in args and prints the artifact location.
func Check(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: compilecheck TEMPLATE")
		return ExitFailed
	}

	logger := logging.NewWithOutput(config.Config{Logging: config.Logging{Level: "warn"}}, stderr)
	env, err := newToolEnv(args[0], logger)
	if err != nil {
		printFailure(stderr, err)
		return ExitFailed
	}

	location, err := env.compiler.CompileToStorage(ctx, report.NewTemplate("", env.source))
	if err != nil {
		printFailure(stderr, err)
		return ExitFailed
	}

	fmt.Fprintln(stdout, location)
	return ExitOK
}

// Debug is Check with file metadata and the full chain of causes.
func Debug(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: compiledebug TEMPLATE")
		return ExitFailed
	}

	logger := logging.NewWithOutput(config.Config{Logging: config.Logging{Level: "debug"}}, stderr)
	env, err := newToolEnv(args[0], logger)
	if err != nil {
		printFailure(stderr, err)
		printCauses(stderr, err)
		return ExitFailed
	}

	printMetadata(ctx, stdout, env)

	location, err := env.compiler.CompileToStorage(ctx, report.NewTemplate("", env.source))
	if err != nil {
		printFailure(stderr, err)
		printCauses(stderr, err)
		return ExitFailed
	}

	fmt.Fprintf(stdout, "compiled: %s\n", location)
	return ExitOK
}

func printMetadata(ctx context.Context, w io.Writer, env *toolEnv) {
	fmt.Fprintf(w, "file:     %s\n", env.source)

	exists, err := env.storage.Exists(ctx, env.source)
	if err != nil {
		fmt.Fprintf(w, "exists:   unknown (%v)\n", err)
		return
	}
	fmt.Fprintf(w, "exists:   %t\n", exists)
	if !exists {
		return
	}

	readable := true
	rc, err := env.storage.Get(ctx, env.source)
	if err != nil {
		readable = false
	} else {
		rc.Close()
	}
	fmt.Fprintf(w, "readable: %t\n", readable)

	meta, err := env.storage.GetMetadata(ctx, env.source)
	if err != nil {
		fmt.Fprintf(w, "metadata: %v\n", err)
		return
	}
	fmt.Fprintf(w, "size:     %d bytes\n", meta.Size)
	fmt.Fprintf(w, "modified: %s\n", meta.LastModified.Format(time.RFC3339))
	fmt.Fprintf(w, "type:     %s\n", meta.ContentType)
}

// Stage returns the compile stage of err, or "internal" for other failures.
func Stage(err error) string {
	var cerr *template.CompileError
	if errors.As(err, &cerr) {
		return string(cerr.Stage)
	}
	return "internal"
}

func printFailure(w io.Writer, err error) {
	fmt.Fprintf(w, "compile failed [%s]: %v\n", Stage(err), err)
}

func printCauses(w io.Writer, err error) {
	depth := 0
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		depth++
		fmt.Fprintf(w, "%scaused by (%T): %v\n", strings.Repeat("  ", depth), cause, cause)
	}
}
