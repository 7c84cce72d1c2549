package cli

import (
	"fmt"
	"time"

	"github.com/disiqueira/gotree/v3"
	"github.com/spf13/cobra"
)

func (a *app) bundlesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundles",
		Short: "Manage the bundles of a document",
	}
	cmd.AddCommand(a.bundlesListCommand(), a.bundlesAddCommand(), a.bundlesGetCommand())
	return cmd
}

func (a *app) bundlesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <id>",
		Short: "Show a document and its bundles as a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			ctx := contextOf(cmd)
			doc, err := a.client.Document().ReadMeta(ctx, id)
			if err != nil {
				return err
			}
			bundles, err := doc.Bundles()
			if err != nil {
				return err
			}
			all, err := bundles.All(ctx)
			if err != nil {
				return err
			}

			name, _ := doc.Name(ctx)
			tree := gotree.New(fmt.Sprintf("%d %s", id, name))
			for b := range all {
				tree.Add(fmt.Sprintf("%s (bundle %d, %s)", b.Identifier(), b.ID(), b.CreatedAt().Format(time.RFC3339)))
			}
			cmd.Print(tree.Print())
			return nil
		},
	}
}

func (a *app) bundlesAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <identifier> <file>",
		Short: "Attach a JSON bundle to a document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			body, err := a.readInput(args[2])
			if err != nil {
				return err
			}
			doc, _ := a.client.Document().Set(id)
			if err := doc.AddBundle(contextOf(cmd), body, args[1]); err != nil {
				return err
			}
			cmd.Printf("Added bundle %s to document %d\n", args[1], id)
			return nil
		},
	}
}

func (a *app) bundlesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id> <identifier>",
		Short: "Print a bundle body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			ctx := contextOf(cmd)
			doc, _ := a.client.Document().Set(id)
			bundles, err := doc.Bundles()
			if err != nil {
				return err
			}
			b, err := bundles.Get(ctx, args[1])
			if err != nil {
				return err
			}
			body, err := b.Prov(ctx)
			if err != nil {
				return err
			}
			return writeBody(cmd, body)
		},
	}
}
