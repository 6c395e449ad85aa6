package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/logbook/internal/export"
	"github.com/mesh-intelligence/logbook/internal/importer"
	"github.com/mesh-intelligence/logbook/internal/logstore"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Export formats.
const (
	formatJSON  = "json"
	formatMD    = "md"
	formatFiles = "files"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Merge a JSON export into the logbook",
		Long: `Reads a JSON array of logs and merges it into the logbook. Imported
logs replace existing logs with the same id. Entries without a title are
dropped; a payload that is not a JSON array is rejected and changes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return userError("read %s: %v", args[0], err)
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			st := importer.New(a.store, a.log).ImportBytes(data)
			if flags.jsonMode {
				if err := printJSON(cmd, importResult{
					Imported: st.Imported,
					Dropped:  st.Dropped,
					Message:  st.Message(),
				}); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), st.Message())
				if st.Dropped > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Dropped %d invalid entr%s.\n", st.Dropped, plural(st.Dropped, "y", "ies"))
				}
			}
			if st.Err != nil {
				return userError("%s", st.Message())
			}
			return nil
		},
	}
}

type importResult struct {
	Imported int    `json:"imported"`
	Dropped  int    `json:"dropped"`
	Message  string `json:"message"`
}

func newExportCmd() *cobra.Command {
	var (
		format  string
		output  string
		dir     string
		project string
		tag     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export logs as JSON or markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatJSON && format != formatMD && format != formatFiles {
				return userError("unknown format %q (want json, md or files)", format)
			}
			if format == formatFiles && dir == "" {
				return userError("--dir is required with --format files")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			logs := logstore.Filter(a.obs.Logs(), logstore.Query{Project: project, Tag: tag})

			if format == formatFiles {
				n, err := writeLogFiles(dir, logs)
				if err != nil {
					return sysError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d log(s) to %s\n", n, dir)
				return nil
			}

			var buf bytes.Buffer
			if format == formatJSON {
				if err := export.WriteJSON(&buf, logs); err != nil {
					return sysError(err)
				}
			} else {
				buf.WriteString(export.ConcatMarkdown(logs))
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := atomic.WriteFile(output, &buf); err != nil {
				return sysError(fmt.Errorf("write %s: %w", output, err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d log(s) to %s\n", len(logs), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format: json, md or files")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&dir, "dir", "", "directory for one markdown file per log (--format files)")
	cmd.Flags().StringVar(&project, "project", "", "only logs in this project")
	cmd.Flags().StringVar(&tag, "tag", "", "only logs with this tag")
	return cmd
}

// writeLogFiles writes one markdown file per log into dir. Colliding names
// get a numeric suffix.
func writeLogFiles(dir string, logs []types.Log) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}
	used := make(map[string]bool, len(logs))
	for _, l := range logs {
		name := export.Filename(l)
		base := strings.TrimSuffix(name, ".md")
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s-%d.md", base, n)
		}
		used[name] = true
		path := filepath.Join(dir, name)
		if err := atomic.WriteFile(path, strings.NewReader(export.ToMarkdown(l))); err != nil {
			return 0, fmt.Errorf("write %s: %w", path, err)
		}
	}
	return len(logs), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
