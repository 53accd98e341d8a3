package commands

import (
	"fmt"

	"git.home.luguber.info/inful/stagehand/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", root.Config)
	fmt.Println("Edit the forge section, then run 'stagehand status' to verify access.")
	return nil
}
