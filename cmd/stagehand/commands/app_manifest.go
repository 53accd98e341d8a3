package commands

import (
	"fmt"

	"git.home.luguber.info/inful/stagehand/internal/onboard"
)

// AppManifestCmd implements the 'app-manifest' command: print the GitHub App
// manifest needed to register stagehand as an app.
type AppManifestCmd struct {
	Name       string `help:"App name" default:"stagehand"`
	WebhookURL string `name:"webhook-url" help:"Webhook delivery URL" default:"https://example.com/webhook"`
}

func (a *AppManifestCmd) Run(_ *Global, _ *CLI) error {
	manifest, err := onboard.NewAppManifest(a.Name, a.WebhookURL).JSON()
	if err != nil {
		return err
	}
	fmt.Println(manifest)
	return nil
}
