package main

import (
	"context"
	"os"

	"report_wrapper/internal/diagnostics"
)

func main() {
	os.Exit(diagnostics.Debug(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
