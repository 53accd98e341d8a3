package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/stagehand/internal/credstore"
)

// OrgsCmd groups credential store management commands.
type OrgsCmd struct {
	Add    OrgsAddCmd    `cmd:"" help:"Store encrypted credentials for an organization"`
	List   OrgsListCmd   `cmd:"" help:"List organizations with stored credentials"`
	Remove OrgsRemoveCmd `cmd:"" help:"Delete stored credentials for an organization"`
}

// OrgsAddCmd stores a token for one organization.
type OrgsAddCmd struct {
	Org    string `arg:"" help:"Organization name"`
	Token  string `help:"Forge API token" env:"FORGE_TOKEN" required:""`
	APIURL string `name:"api-url" help:"Custom API URL for enterprise forges"`
}

func (o *OrgsAddCmd) Run(g *Global, root *CLI) error {
	store, err := credstore.New(credstoreConfig(root.Config), g.Logger)
	if err != nil {
		return err
	}
	if err := store.Save(credstore.OrgCredentials{
		Org:     o.Org,
		Token:   o.Token,
		APIURL:  o.APIURL,
		SavedAt: time.Now(),
	}); err != nil {
		return err
	}
	fmt.Printf("Credentials for %s stored in %s\n", o.Org, store.Dir())
	return nil
}

// OrgsListCmd lists stored organizations.
type OrgsListCmd struct{}

func (o *OrgsListCmd) Run(g *Global, root *CLI) error {
	store, err := credstore.New(credstoreConfig(root.Config), g.Logger)
	if err != nil {
		return err
	}
	orgs, err := store.List()
	if err != nil {
		return err
	}
	if len(orgs) == 0 {
		fmt.Println("No stored credentials.")
		return nil
	}
	for _, org := range orgs {
		fmt.Println(org)
	}
	return nil
}

// OrgsRemoveCmd deletes stored credentials.
type OrgsRemoveCmd struct {
	Org string `arg:"" help:"Organization name"`
}

func (o *OrgsRemoveCmd) Run(g *Global, root *CLI) error {
	store, err := credstore.New(credstoreConfig(root.Config), g.Logger)
	if err != nil {
		return err
	}
	if err := store.Delete(o.Org); err != nil {
		return err
	}
	fmt.Printf("Credentials for %s removed.\n", o.Org)
	return nil
}
