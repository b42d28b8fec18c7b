package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"ledgerdash/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	// Exits when invoked by the shell for completion.
	cli.Completion(cfg.DataFile).Complete("ledgerctl")

	env := &cli.Env{
		Config: cfg,
		Logger: cli.SetupLogger(cfg, os.Stderr),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cli.Register(commander, env)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
