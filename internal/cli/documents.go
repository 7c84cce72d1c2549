package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/provstore/provstore_sdk_go/pkg/provstore"
)

func (a *app) createCommand() *cobra.Command {
	var (
		name   string
		public bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Upload a document",
		Long:  "Upload a provenance document read from file (\"-\" for stdin) and print its id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			if name == "" && args[0] == "-" {
				return fmt.Errorf("--name is required when reading from stdin")
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			doc, err := a.client.Document().Create(contextOf(cmd), body, name, &provstore.CreateOptions{
				Format: format,
				Public: public,
			})
			if err != nil {
				return err
			}
			id, _ := doc.ID()
			cmd.Printf("Created document %d\n", id)
			cmd.Printf("  URL: %s\n", doc.URL())
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "document name (default: file name)")
	cmd.Flags().BoolVar(&public, "public", false, "make the document public")
	cmd.Flags().StringVarP(&format, "format", "f", provstore.FormatJSON, "serialization of the file")
	return cmd
}

func (a *app) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show document metadata",
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
			name, _ := doc.Name(ctx)
			owner, _ := doc.Owner(ctx)
			public, _ := doc.Public(ctx)
			created, _ := doc.CreatedAt(ctx)
			views, _ := doc.Views(ctx)

			cmd.Printf("Document: %d\n\n", id)
			cmd.Printf("  Name:     %s\n", name)
			cmd.Printf("  Owner:    %s\n", owner)
			cmd.Printf("  Public:   %t\n", public)
			cmd.Printf("  Created:  %s\n", created.Format(time.RFC3339))
			cmd.Printf("  Views:    %d\n", views)
			cmd.Printf("  URL:      %s\n", doc.URL())
			return nil
		},
	}
}

func (a *app) provCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "prov <id>",
		Short: "Print a document body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			ctx := contextOf(cmd)
			var body []byte
			if format == provstore.FormatJSON {
				body, err = a.client.Document().ReadProv(ctx, id)
			} else {
				doc, _ := a.client.Document().Set(id)
				body, err = doc.ReadProvFormat(ctx, format)
			}
			if err != nil {
				return err
			}
			return writeBody(cmd, body)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", provstore.FormatJSON, "serialization to request")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			doc, _ := a.client.Document().Set(id)
			if err := doc.Delete(contextOf(cmd)); err != nil {
				return err
			}
			cmd.Printf("Deleted document %d\n", id)
			return nil
		},
	}
}

func writeBody(cmd *cobra.Command, body []byte) error {
	out := cmd.OutOrStdout()
	if _, err := out.Write(body); err != nil {
		return err
	}
	if len(body) > 0 && body[len(body)-1] != '\n' {
		_, err := out.Write([]byte("\n"))
		return err
	}
	return nil
}
