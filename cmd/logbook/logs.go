package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/logbook/internal/attachment"
	"github.com/mesh-intelligence/logbook/internal/export"
	"github.com/mesh-intelligence/logbook/internal/logstore"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

func newNewCmd() *cobra.Command {
	var (
		title    string
		project  string
		tags     string
		body     string
		bodyFile string
		attach   []string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bodyFile != "" {
				data, err := readInput(cmd, bodyFile)
				if err != nil {
					return userError("read body: %v", err)
				}
				body = string(data)
			}
			f := types.Fields{
				Title:   strings.TrimSpace(title),
				Project: strings.TrimSpace(project),
				Tags:    types.ParseTags(tags),
				Body:    strings.TrimSpace(body),
			}
			if err := f.Validate(); err != nil {
				return userError("%v", err)
			}
			if len(attach) > 0 {
				atts, err := attachment.FromFiles(cmd.Context(), attach)
				if err != nil {
					return userError("attach: %v", err)
				}
				f.Attachments = atts
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.obs.Create(f)
			if err != nil {
				return sysError(fmt.Errorf("create log: %w", err))
			}
			if flags.jsonMode {
				return printJSON(cmd, l)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created log: %s\n", l.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "log title (required)")
	cmd.Flags().StringVar(&project, "project", "", "project name")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&body, "body", "", "markdown body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "read the body from a file (- for stdin)")
	cmd.Flags().StringSliceVar(&attach, "attach", nil, "files to attach")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newListCmd() *cobra.Command {
	var (
		q     logstore.Query
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			logs := logstore.Filter(a.obs.Logs(), q)
			if limit > 0 && len(logs) > limit {
				logs = logs[:limit]
			}
			if flags.jsonMode {
				return printJSON(cmd, logs)
			}
			if len(logs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No logs.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, l := range logs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.ID, datePart(l.CreatedAt), l.Title, l.Project, strings.Join(l.Tags, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&q.Project, "project", "", "only logs in this project (\""+logstore.UnassignedProject+"\" for none)")
	cmd.Flags().StringVar(&q.Tag, "tag", "", "only logs with this tag")
	cmd.Flags().StringVar(&q.Text, "search", "", "case-insensitive text search")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many logs")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a log as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.lookupLog(args[0])
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, l)
			}
			fmt.Fprint(cmd.OutOrStdout(), export.ToMarkdown(l))
			return nil
		},
	}
}

func newEditCmd() *cobra.Command {
	var (
		title    string
		project  string
		tags     string
		body     string
		bodyFile string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p types.Patch
			fs := cmd.Flags()
			if fs.Changed("title") {
				t := strings.TrimSpace(title)
				p.Title = &t
			}
			if fs.Changed("project") {
				pr := strings.TrimSpace(project)
				p.Project = &pr
			}
			if fs.Changed("tags") {
				parsed := types.ParseTags(tags)
				p.Tags = &parsed
			}
			if fs.Changed("body-file") {
				data, err := readInput(cmd, bodyFile)
				if err != nil {
					return userError("read body: %v", err)
				}
				body = string(data)
			}
			if fs.Changed("body") || fs.Changed("body-file") {
				b := strings.TrimSpace(body)
				p.Body = &b
			}
			if p.Empty() {
				return userError("nothing to update")
			}
			if err := p.Validate(); err != nil {
				return userError("%v", err)
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.lookupLog(args[0])
			if err != nil {
				return err
			}
			if err := a.obs.Update(l.ID, p); err != nil {
				return sysError(fmt.Errorf("update log: %w", err))
			}
			if flags.jsonMode {
				updated, _ := a.obs.Get(l.ID)
				return printJSON(cmd, updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated log: %s\n", l.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&project, "project", "", "new project (empty to unassign)")
	cmd.Flags().StringVar(&tags, "tags", "", "new comma-separated tags")
	cmd.Flags().StringVar(&body, "body", "", "new markdown body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "read the new body from a file (- for stdin)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.lookupLog(args[0])
			if err != nil {
				return err
			}
			if err := a.obs.Remove(l.ID); err != nil {
				return sysError(fmt.Errorf("delete log: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted log: %s\n", l.ID)
			return nil
		},
	}
}

// datePart returns the YYYY-MM-DD prefix of an ISO timestamp.
func datePart(iso string) string {
	if len(iso) >= 10 {
		return iso[:10]
	}
	return iso
}
