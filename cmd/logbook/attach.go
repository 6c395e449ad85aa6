package main

import (
	"bytes"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/logbook/internal/attachment"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

func newAttachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Manage the attachments of a log",
	}
	cmd.AddCommand(newAttachAddCmd(), newAttachRmCmd(), newAttachSaveCmd(), newAttachLsCmd())
	return cmd
}

func newAttachAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <file>...",
		Short: "Attach files to a log",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			atts, err := attachment.FromFiles(cmd.Context(), args[1:])
			if err != nil {
				return userError("attach: %v", err)
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
			merged := append(slices.Clone(l.Attachments), atts...)
			if err := a.obs.Update(l.ID, types.Patch{Attachments: &merged}); err != nil {
				return sysError(fmt.Errorf("update log: %w", err))
			}
			if flags.jsonMode {
				return printJSON(cmd, atts)
			}
			for _, att := range atts {
				fmt.Fprintf(cmd.OutOrStdout(), "Attached %s: %s\n", att.Name, att.ID)
			}
			return nil
		},
	}
}

func newAttachRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id> <attachment-id>",
		Short: "Remove an attachment from a log",
		Args:  cobra.ExactArgs(2),
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
			if _, ok := findAttachment(l, args[1]); !ok {
				return userError("attachment not found: %s", args[1])
			}
			rest := types.RemoveAttachment(l.Attachments, args[1])
			if err := a.obs.Update(l.ID, types.Patch{Attachments: &rest}); err != nil {
				return sysError(fmt.Errorf("update log: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed attachment: %s\n", args[1])
			return nil
		},
	}
}

func newAttachSaveCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "save <id> <attachment-id>",
		Short: "Write an attachment's content to a file",
		Args:  cobra.ExactArgs(2),
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
			att, ok := findAttachment(l, args[1])
			if !ok {
				return userError("attachment not found: %s", args[1])
			}
			data, err := attachment.Decode(att)
			if err != nil {
				return userError("attachment %s: %v", att.ID, err)
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "" {
				output = att.Name
			}
			if err := atomic.WriteFile(output, bytes.NewReader(data)); err != nil {
				return sysError(fmt.Errorf("write %s: %w", output, err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", output, attachment.FormatSize(int64(len(data))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default: the attachment's name, - for stdout)")
	return cmd
}

func newAttachLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <id>",
		Short: "List the attachments of a log",
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
				if l.Attachments == nil {
					return printJSON(cmd, []types.Attachment{})
				}
				return printJSON(cmd, l.Attachments)
			}
			if len(l.Attachments) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No attachments.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, att := range l.Attachments {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", att.ID, att.Name, att.Type, attachment.FormatSize(att.Size))
			}
			return w.Flush()
		},
	}
}

func findAttachment(l types.Log, id string) (types.Attachment, bool) {
	for _, att := range l.Attachments {
		if att.ID == id {
			return att, true
		}
	}
	return types.Attachment{}, false
}
