package main

import (
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/stagehand/cmd/stagehand/commands"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("stagehand"),
		kong.Description("Backstage catalog onboarding automation for forge organizations."),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("stagehand %s (commit %s, built %s)",
				version.Version, version.GitCommit, version.BuildTime),
		},
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := ctx.Run(global, &cli); err != nil {
		adapter := fnderrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		adapter.HandleError(err)
	}
}
