package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sitegen/internal/scaffold"
)

func newNewCmd(a *app) *cobra.Command {
	var (
		collection string
		author     string
		private    bool
	)
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a post with a metadata header",
		Long: `Create a Markdown file named after the title inside a collection's
source directory, stamped with the current date.

Examples:
  sitegen new "Notes on tiling window managers"
  sitegen new --private "Half-baked idea"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := collection
			if name == "" {
				name = a.cfg.Collections[0].Name
			}
			coll, ok := a.cfg.Collection(name)
			if !ok {
				return fmt.Errorf("unknown collection %q", name)
			}
			if !cmd.Flags().Changed("author") {
				author = a.cfg.Site.Author
			}

			title := strings.Join(args, " ")
			p, err := scaffold.NewPost(coll.Source, title, author, time.Now(), private)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "collection to add the post to (default: the first one)")
	cmd.Flags().StringVar(&author, "author", "", "author (default: site.author)")
	cmd.Flags().BoolVar(&private, "private", false, "mark the post private so it is not published")
	return cmd
}
