package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/logbook/internal/logstore"
	"github.com/mesh-intelligence/logbook/internal/urdf"
)

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects with their log counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			projects := logstore.Projects(a.obs.Logs())
			if flags.jsonMode {
				return printJSON(cmd, projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROJECT\tLOGS\tLATEST\tTAGS")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", p.Name, p.Count, datePart(p.Latest), strings.Join(p.Tags, ","))
			}
			return w.Flush()
		},
	}
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every tag in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tags := logstore.TagOptions(a.obs.Logs())
			if flags.jsonMode {
				return printJSON(cmd, tags)
			}
			for _, t := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func newRobotCmd() *cobra.Command {
	var nameOnly bool
	cmd := &cobra.Command{
		Use:   "robot <id>",
		Short: "Print the robot description embedded in a log",
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
			fragment, ok := urdf.Extract(l.Body)
			if !ok {
				return userError("log %s has no robot description", l.ID)
			}
			if nameOnly {
				name, err := urdf.Name(fragment)
				if errors.Is(err, urdf.ErrNoName) {
					return userError("robot description in %s has no name", l.ID)
				}
				if err != nil {
					return userError("parse robot description: %v", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), fragment)
			return nil
		},
	}
	cmd.Flags().BoolVar(&nameOnly, "name", false, "print only the robot's name")
	return cmd
}
