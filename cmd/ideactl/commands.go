package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/ideabox/internal/client"
	"github.com/MrSnakeDoc/ideabox/internal/domain"
	"github.com/MrSnakeDoc/ideabox/internal/version"
	"github.com/MrSnakeDoc/ideabox/internal/view"
)

const defaultServer = "http://localhost:8080"

type options struct {
	server  string
	timeout time.Duration
}

func (o *options) client() (*client.Client, error) {
	return client.New(o.server, client.WithTimeout(o.timeout))
}

func rootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	server := os.Getenv("IDEABOX_URL")
	if server == "" {
		server = defaultServer
	}

	cmd := &cobra.Command{
		Use:           "ideactl",
		Short:         "Manage ideas on an Idea Box server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "Idea Box base URL (env IDEABOX_URL)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Per-request timeout")

	cmd.AddCommand(
		listCmd(opts),
		showCmd(opts),
		createCmd(opts),
		editCmd(opts),
		stepCmd(opts, "promote", "Raise an idea's quality by one step", (*client.Client).Promote),
		stepCmd(opts, "demote", "Lower an idea's quality by one step", (*client.Client).Demote),
		deleteCmd(opts),
		renderCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "ideactl %s (commit=%s, built=%s, go=%s)\n",
					version.Version, version.Commit, version.BuildDate, version.GoVersion)
			},
		},
	)
	return cmd
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ideas, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			list, err := c.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tQUALITY\tCREATED\tTITLE")
			for _, idea := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
					idea.ID, idea.Quality, idea.CreatedAt.Format(time.RFC3339), idea.Title)
			}
			return tw.Flush()
		},
	}
}

func showCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			idea, err := c.Get(cmd.Context(), id)
			if err != nil {
				return explain(err)
			}
			printIdea(cmd.OutOrStdout(), idea)
			return nil
		},
	}
}

func createCmd(opts *options) *cobra.Command {
	var title, body string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an idea",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			idea, err := c.Create(cmd.Context(), title, body)
			if err != nil {
				return explain(err)
			}
			printIdea(cmd.OutOrStdout(), idea)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Idea title")
	cmd.Flags().StringVarP(&body, "body", "b", "", "Idea body")
	return cmd
}

func editCmd(opts *options) *cobra.Command {
	var title, body, quality string

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change an idea's title, body or quality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var patch domain.IdeaPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("body") {
				patch.Body = &body
			}
			if flags.Changed("quality") {
				q, err := domain.ParseQuality(quality)
				if err != nil {
					return fmt.Errorf("%w (want one of %s)", err, qualityChoices())
				}
				patch.Quality = &q
			}
			if patch.Empty() {
				return errors.New("nothing to change, pass --title, --body or --quality")
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			idea, err := c.Update(cmd.Context(), id, patch)
			if err != nil {
				return explain(err)
			}
			printIdea(cmd.OutOrStdout(), idea)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&body, "body", "b", "", "New body")
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "New quality: "+qualityChoices())
	return cmd
}

func qualityChoices() string {
	names := make([]string, 0, 3)
	for _, q := range domain.Qualities() {
		names = append(names, q.String())
	}
	return strings.Join(names, ", ")
}

type stepFunc func(*client.Client, context.Context, int64) (domain.Idea, error)

func stepCmd(opts *options, name, short string, step stepFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			idea, err := step(c, cmd.Context(), id)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d is now %s\n", idea.ID, idea.Quality.Label())
			return nil
		},
	}
}

func deleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete an idea",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.Remove(cmd.Context(), id); err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			return nil
		},
	}
}

func renderCmd(opts *options) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the ideas as the page would render them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			b := view.NewBlankBoard(c)
			if err := b.Load(cmd.Context()); err != nil {
				return err
			}

			var out string
			if full {
				out, err = b.HTML()
			} else {
				out, err = b.ContainerHTML()
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Render the whole document, not just the ideas")
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid idea id %q", raw)
	}
	return id, nil
}

// explain turns API failures into messages fit for a terminal.
func explain(err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return fmt.Errorf("%s (%s)", view.MessageBlank, ve.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errors.New("idea not found")
	default:
		return err
	}
}

func printIdea(w io.Writer, idea domain.Idea) {
	fmt.Fprintf(w, "#%d %s [%s]\n%s\ncreated %s\n",
		idea.ID, idea.Title, idea.Quality.Label(), idea.Body, idea.CreatedAt.Format(time.RFC3339))
}
