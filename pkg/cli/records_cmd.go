package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"gridbase/internal/domain"
)

func newRecordsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "rec"},
		Short:   "Query and modify dataset records",
	}

	cmd.AddCommand(newRecordsQueryCmd(opts))
	cmd.AddCommand(newRecordsGetCmd(opts))
	cmd.AddCommand(newRecordsCreateCmd(opts))
	cmd.AddCommand(newRecordsUpdateCmd(opts))
	cmd.AddCommand(newRecordsDeleteCmd(opts))

	return cmd
}

// printRecords renders records as a table. Columns follow the first record
// when fields is empty.
func printRecords(cmd *cobra.Command, rows []domain.Record, fields []string) {
	columns := fields
	if len(columns) == 0 && len(rows) > 0 {
		columns = recordColumns(rows[0])
	}
	cells := make([][]string, 0, len(rows))
	for _, rec := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			line[i] = formatValue(rec[c])
		}
		cells = append(cells, line)
	}
	PrintTable(cmd.OutOrStdout(), columns, cells)
}

// recordColumns orders id first and the remaining keys alphabetically.
func recordColumns(rec domain.Record) []string {
	cols := make([]string, 0, len(rec))
	for k := range rec {
		if k != domain.ColumnID {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	if _, ok := rec[domain.ColumnID]; ok {
		cols = append([]string{domain.ColumnID}, cols...)
	}
	return cols
}

// readData returns the JSON payload given by --data: inline JSON, @path, or
// - for stdin.
func readData(cmd *cobra.Command, data string) (map[string]any, error) {
	var raw []byte
	switch {
	case data == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		raw = b
	default:
		raw = []byte(data)
	}
	return domain.DecodePayload(raw)
}

func newRecordsQueryCmd(opts *rootOptions) *cobra.Command {
	var (
		fields string
		filter string
		sortBy string
		page   int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "query <dataset-id>",
		Short: "Read a page of non-trashed records",
		Example: `  gridctl records query $DS --fields title,author --sort -title --limit 20
  gridctl records query $DS --filter '{"field":"author","value":"Orwell"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := domain.ParseFilter([]byte(filter))
			if err != nil {
				return err
			}
			q := domain.GridQuery{
				DatasetID: args[0],
				Fields:    domain.SplitList(fields),
				Filter:    f,
				Sort:      domain.ParseSort(sortBy),
				Page:      page,
				Limit:     limit,
			}

			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			res, err := st.records.GetGrid(cmd.Context(), q)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), res)
			}
			printRecords(cmd, res.Data, q.Fields)
			return nil
		},
	}

	cmd.Flags().StringVar(&fields, "fields", "", "Comma-separated fields to return")
	cmd.Flags().StringVar(&filter, "filter", "", "JSON filter tree")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Comma-separated sort fields; prefix with - for descending")
	cmd.Flags().IntVar(&page, "page", 0, "Page number, starting at 1")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")

	return cmd
}

func newRecordsGetCmd(opts *rootOptions) *cobra.Command {
	var (
		fields string
		lookup bool
	)

	cmd := &cobra.Command{
		Use:   "get <dataset-id> <record-id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			var rec domain.Record
			if lookup {
				rec, err = st.records.LookupRecord(cmd.Context(), args[0], args[1])
			} else {
				rec, err = st.records.GetGridRecord(cmd.Context(), domain.GridRecordQuery{
					DatasetID: args[0],
					RecordID:  args[1],
					Fields:    domain.SplitList(fields),
				})
			}
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), rec)
			}
			PrintDetail(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmd.Flags().StringVar(&fields, "fields", "", "Comma-separated fields to return")
	cmd.Flags().BoolVar(&lookup, "lookup", false, "Look the record up by id, including trashed records")

	return cmd
}

func newRecordsCreateCmd(opts *rootOptions) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:     "create <dataset-id>",
		Short:   "Create a record",
		Example: `  gridctl records create $DS --data '{"title":"1984","author":"Orwell"}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readData(cmd, data)
			if err != nil {
				return err
			}

			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			res, err := st.records.CreateRecord(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), res)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "{}", "JSON object of field values, @file, or - for stdin")

	return cmd
}

func newRecordsUpdateCmd(opts *rootOptions) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "update <dataset-id> <record-id>",
		Short: "Update fields of a non-trashed record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readData(cmd, data)
			if err != nil {
				return err
			}

			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			res, err := st.records.UpdateRecord(cmd.Context(), args[0], args[1], payload)
			if err != nil {
				return err
			}
			return printMutation(cmd, "updated", res)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON object of field values, @file, or - for stdin (required)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func newRecordsDeleteCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <dataset-id> <record-id>",
		Short: "Move a record to the trash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			res, err := st.records.DeleteRecord(cmd.Context(), args[0], args[1], force)
			if err != nil {
				return err
			}
			return printMutation(cmd, "trashed", res)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Delete permanently (not supported)")

	return cmd
}

func printMutation(cmd *cobra.Command, verb string, res *domain.MutationResult) error {
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(cmd.OutOrStdout(), res)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d record(s) %s\n", res.Count, verb)
	return nil
}
