package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/tphakala/gallery-migrate/cmd"
	"github.com/tphakala/gallery-migrate/internal/app"
	"github.com/tphakala/gallery-migrate/internal/buildinfo"
)

// buildDate and version are set at build time with
// -ldflags "-X main.buildDate=... -X main.version=..."
var (
	buildDate string
	version   string
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	rt := app.NewRuntime(&buildinfo.Context{
		Version:   version,
		BuildDate: buildDate,
	})
	defer func() { _ = rt.Close() }()

	err := cmd.RootCommand(rt).Execute()
	if err == nil {
		return app.ExitDone
	}

	var exitErr *app.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return app.ExitFatal
}
