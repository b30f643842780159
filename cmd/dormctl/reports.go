package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dormcore/internal/export"
	"dormcore/internal/report"
	"dormcore/pkg/domain"
)

func reportKindNames() []string {
	var names []string
	for _, k := range report.Kinds() {
		names = append(names, string(k))
	}
	return names
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "report <" + strings.Join(reportKindNames(), "|") + ">",
		Short:     "Print a report computed from the current data",
		Args:      cobra.ExactArgs(1),
		ValidArgs: reportKindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := report.ParseKind(args[0])
			if err != nil {
				return err
			}
			cache, err := opts.app.reports(cmd.Context())
			if err != nil {
				return err
			}
			text, err := cache.Text(cmd.Context(), kind)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
}

// parseEntityKind accepts singular or plural entity names.
func parseEntityKind(raw string) (domain.Kind, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "s")
	for _, k := range domain.Kinds() {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown entity kind %q", domain.ErrInvalid, raw)
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{Use: "export", Short: "Write reports or entity listings to the export store"}
	cmd.PersistentFlags().StringVar(&format, "format", "text", "output format (text|excel)")

	printRecord := func(cmd *cobra.Command, rec domain.ReportRecord) {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported #%d %s to %s\n", rec.ID, rec.Title, rec.Path)
	}

	reportCmd := &cobra.Command{
		Use:   "report <kind>",
		Short: "Export a computed report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := report.ParseKind(args[0])
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			cache, err := opts.app.reports(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := cache.Get(cmd.Context(), kind)
			if err != nil {
				return err
			}
			exp, err := opts.app.exports(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := exp.ExportReport(cmd.Context(), doc, f)
			if err != nil {
				return err
			}
			printRecord(cmd, rec)
			return nil
		},
	}

	entitiesCmd := &cobra.Command{
		Use:   "entities <students|rooms|contracts|fees>",
		Short: "Export a listing of one entity kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseEntityKind(args[0])
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			exp, err := opts.app.exports(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := exp.ExportEntities(cmd.Context(), kind, repo.Snapshot(), f)
			if err != nil {
				return err
			}
			printRecord(cmd, rec)
			return nil
		},
	}

	cmd.AddCommand(reportCmd, entitiesCmd)
	return cmd
}

func newReportsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "List previously exported reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exp, err := opts.app.exports(cmd.Context())
			if err != nil {
				return err
			}
			t := export.Table{Name: "Exported Reports", Headers: []string{"ID", "Title", "Type", "Generated", "Format", "Status", "Path"}}
			for _, r := range exp.Records() {
				t.Rows = append(t.Rows, []string{
					strconv.Itoa(r.ID), r.Title, r.Type, r.GeneratedAt.Format(export.GeneratedLayout),
					string(r.Format), string(r.Status), r.Path,
				})
			}
			return export.WriteTableText(cmd.OutOrStdout(), t)
		},
	}
}

func newSaveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Write all collections to storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			if err := repo.SaveAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved")
			return nil
		},
	}
}
