package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

func newDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect or manage the autosaved draft",
	}
	cmd.AddCommand(newDraftShowCmd(), newDraftSetCmd(), newDraftDiscardCmd(), newDraftCommitCmd())
	return cmd
}

func newDraftShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			d, ok := a.draftSlot().Load()
			if flags.jsonMode {
				if !ok {
					return printJSON(cmd, nil)
				}
				return printJSON(cmd, d)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No draft.")
				return nil
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved:    %s\n", d.SavedAt)
			fmt.Fprintf(out, "Title:    %s\n", d.Title)
			fmt.Fprintf(out, "Project:  %s\n", d.Project)
			fmt.Fprintf(out, "Tags:     %s\n", d.TagsText)
			fmt.Fprintf(out, "Attached: %d\n", len(d.Attachments))
			if d.Body != "" {
				fmt.Fprintf(out, "\n%s\n", d.Body)
			}
			return nil
		},
	}
}

func newDraftSetCmd() *cobra.Command {
	var title, project, tags, body, bodyFile string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change fields of the draft, creating it if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			slot := a.draftSlot()
			d, _ := slot.Load()
			f := d.DraftFields
			fs := cmd.Flags()
			if fs.Changed("title") {
				f.Title = title
			}
			if fs.Changed("project") {
				f.Project = project
			}
			if fs.Changed("tags") {
				f.TagsText = tags
			}
			if fs.Changed("body-file") {
				data, err := readInput(cmd, bodyFile)
				if err != nil {
					return userError("read body: %v", err)
				}
				body = string(data)
			}
			if fs.Changed("body") || fs.Changed("body-file") {
				f.Body = body
			}

			saved, err := slot.Save(f)
			if err != nil {
				return sysError(fmt.Errorf("save draft: %w", err))
			}
			if flags.jsonMode {
				return printJSON(cmd, saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Draft saved (%s).\n", saved.SavedAt)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "draft title")
	cmd.Flags().StringVar(&project, "project", "", "draft project")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&body, "body", "", "markdown body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "read the body from a file (- for stdin)")
	return cmd
}

func newDraftDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Delete the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			c := a.composer()
			defer c.Close()
			if err := c.Discard(); err != nil {
				return sysError(fmt.Errorf("discard draft: %w", err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Status())
			return nil
		},
	}
}

func newDraftCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Create a log from the draft and clear it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			c := a.composer()
			defer c.Close()
			if _, ok := c.Mount(); !ok {
				return userError("no draft to commit")
			}
			l, err := c.Commit()
			if errors.Is(err, types.ErrTitleRequired) {
				return userError("draft has no title")
			}
			if err != nil {
				return sysError(fmt.Errorf("commit draft: %w", err))
			}
			if flags.jsonMode {
				return printJSON(cmd, l)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created log: %s\n", l.ID)
			return nil
		},
	}
}
