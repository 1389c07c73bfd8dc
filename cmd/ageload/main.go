// Command ageload is the batch loader's CLI: load a graph payload,
// validate one without touching the database, or install/inspect the
// get_vertices/get_edges helper functions. Grounded on
// alexisbeaulieu97-Streamy's cmd/streamy layout: a root cobra.Command
// built in newRootCmd, one file per subcommand, a shared application
// context threaded through via closures rather than globals.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ageloader/batchloader/internal/config"
)

// appContext is the CLI's shared dependencies, analogous to Streamy's
// AppContext: built once in main, passed into each subcommand
// constructor.
type appContext struct {
	cfg    config.Config
	logger zerolog.Logger
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ageload: loading configuration:", err)
		os.Exit(1)
	}

	app := &appContext{cfg: cfg, logger: logger}
	root := newRootCmd(app)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ageload:", err)
		os.Exit(1)
	}
}
