package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gridbase/internal/domain"
)

func newDatasetsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"dataset", "ds"},
		Short:   "Manage dataset definitions",
	}

	cmd.AddCommand(newDatasetsListCmd(opts))
	cmd.AddCommand(newDatasetsGetCmd(opts))
	cmd.AddCommand(newDatasetsCreateCmd(opts))
	cmd.AddCommand(newDatasetsApplyCmd(opts))
	cmd.AddCommand(newDatasetsUpdateCmd(opts))
	cmd.AddCommand(newDatasetsDeleteCmd(opts))

	return cmd
}

type fieldView struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	System   bool            `json:"system"`
	Position int             `json:"position"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

type datasetView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	TableName   string          `json:"tableName"`
	Title       string          `json:"title"`
	PluralTitle string          `json:"pluralTitle"`
	Settings    json.RawMessage `json:"settings,omitempty"`
	Fields      []fieldView     `json:"fields"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

func toDatasetView(ds *domain.Dataset) datasetView {
	v := datasetView{
		ID:          ds.ID,
		Name:        ds.Name,
		TableName:   ds.TableName,
		Title:       ds.Title,
		PluralTitle: ds.PluralTitle,
		Settings:    ds.Settings,
		Fields:      make([]fieldView, 0, len(ds.Fields)),
		CreatedAt:   formatValue(ds.CreatedAt),
		UpdatedAt:   formatValue(ds.UpdatedAt),
	}
	for _, f := range ds.Fields {
		v.Fields = append(v.Fields, fieldView{
			ID:       f.ID,
			Name:     f.Name,
			Type:     string(f.Type),
			Title:    f.Title,
			System:   f.System,
			Position: f.Position,
			Settings: f.Settings,
		})
	}
	return v
}

func printDataset(cmd *cobra.Command, ds *domain.Dataset) error {
	out := cmd.OutOrStdout()
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(out, toDatasetView(ds))
	}
	PrintDetail(out, map[string]any{
		"id":          ds.ID,
		"name":        ds.Name,
		"table":       ds.TableName,
		"title":       ds.Title,
		"pluralTitle": ds.PluralTitle,
		"createdAt":   ds.CreatedAt,
		"updatedAt":   ds.UpdatedAt,
	})
	_, _ = fmt.Fprintln(out)
	rows := make([][]string, 0, len(ds.Fields))
	for _, f := range ds.Fields {
		rows = append(rows, []string{
			strconv.Itoa(f.Position), f.Name, string(f.Type), f.Title, strconv.FormatBool(f.System),
		})
	}
	PrintTable(out, []string{"position", "name", "type", "title", "system"}, rows)
	return nil
}

func newDatasetsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			all, err := st.datasets.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				views := make([]datasetView, 0, len(all))
				for i := range all {
					views = append(views, toDatasetView(&all[i]))
				}
				return PrintJSON(cmd.OutOrStdout(), views)
			}
			rows := make([][]string, 0, len(all))
			for _, ds := range all {
				rows = append(rows, []string{
					ds.ID, ds.Name, ds.TableName, strconv.Itoa(len(ds.Fields)), formatValue(ds.CreatedAt),
				})
			}
			PrintTable(cmd.OutOrStdout(), []string{"id", "name", "table", "fields", "created"}, rows)
			return nil
		},
	}
}

func newDatasetsGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <dataset-id>",
		Short: "Show a dataset and its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			ds, err := st.datasets.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printDataset(cmd, ds)
		},
	}
}

// parseFieldFlag parses name[:TYPE[:Title]].
func parseFieldFlag(s string) (domain.FieldSpec, error) {
	parts := strings.SplitN(s, ":", 3)
	spec := domain.FieldSpec{Name: strings.TrimSpace(parts[0])}
	if spec.Name == "" {
		return domain.FieldSpec{}, fmt.Errorf("invalid --field %q: name is required", s)
	}
	if len(parts) > 1 {
		t, err := domain.ParseFieldType(parts[1])
		if err != nil {
			return domain.FieldSpec{}, err
		}
		spec.Type = t
	}
	if len(parts) > 2 {
		spec.Title = strings.TrimSpace(parts[2])
	}
	return spec, nil
}

func newDatasetsCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		req    domain.CreateDatasetRequest
		fields []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a dataset and its table",
		Example: `  gridctl datasets create --name books --title Book --plural-title Books \
    --field author --field pages:INTEGER:Page count`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range fields {
				spec, err := parseFieldFlag(f)
				if err != nil {
					return err
				}
				req.Fields = append(req.Fields, spec)
			}

			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			ds, err := st.datasets.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printDataset(cmd, ds)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Dataset name (required)")
	cmd.Flags().StringVar(&req.Title, "title", "", "Singular display title (defaults to the name)")
	cmd.Flags().StringVar(&req.PluralTitle, "plural-title", "", "Plural display title (defaults to the title)")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Field as name[:TYPE[:Title]]; repeatable")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// datasetDefinition is one YAML document accepted by "datasets apply".
type datasetDefinition struct {
	Name        string             `yaml:"name"`
	Title       string             `yaml:"title"`
	PluralTitle string             `yaml:"pluralTitle"`
	Fields      []domain.FieldSpec `yaml:"fields"`
}

// loadDefinitions decodes every document of a YAML stream. Unknown keys are
// rejected.
func loadDefinitions(r io.Reader) ([]datasetDefinition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var defs []datasetDefinition
	for {
		var def datasetDefinition
		err := dec.Decode(&def)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse definition %d: %w", len(defs)+1, err)
		}
		if def.Name == "" && def.Title == "" && len(def.Fields) == 0 {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// applyAction is the outcome of applying one definition.
type applyAction struct {
	Action    string `json:"action"`
	Name      string `json:"name"`
	DatasetID string `json:"datasetId,omitempty"`
}

// planDefinition compares def with the existing dataset of the same name.
// Fields can only be declared at creation; a definition that adds or retypes
// a field of an existing dataset is rejected.
func planDefinition(def datasetDefinition, existing *domain.Dataset) (string, domain.UpdateDatasetRequest, error) {
	var patch domain.UpdateDatasetRequest
	if existing == nil {
		return "create", patch, nil
	}
	for _, spec := range def.Fields {
		f, ok := existing.FieldByName(spec.Name)
		if !ok {
			return "", patch, domain.ErrValidation("dataset %q exists; field %q cannot be added", def.Name, spec.Name)
		}
		want, err := domain.ParseFieldType(string(spec.Type))
		if err != nil {
			return "", patch, err
		}
		if f.Type != want {
			return "", patch, domain.ErrValidation("dataset %q exists; field %q is %s, not %s", def.Name, spec.Name, f.Type, want)
		}
	}

	title := def.Title
	if title == "" {
		title = def.Name
	}
	plural := def.PluralTitle
	if plural == "" {
		plural = title
	}
	if title != existing.Title {
		patch.Title = &title
	}
	if plural != existing.PluralTitle {
		patch.PluralTitle = &plural
	}
	if patch.Title == nil && patch.PluralTitle == nil {
		return "unchanged", patch, nil
	}
	return "update", patch, nil
}

func applyDefinitions(ctx context.Context, st *store, defs []datasetDefinition, dryRun bool) ([]applyAction, error) {
	all, err := st.datasets.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*domain.Dataset, len(all))
	for i := range all {
		byName[all[i].Name] = &all[i]
	}

	actions := make([]applyAction, 0, len(defs))
	for _, def := range defs {
		existing := byName[def.Name]
		action, patch, err := planDefinition(def, existing)
		if err != nil {
			return actions, err
		}
		result := applyAction{Action: action, Name: def.Name}
		if existing != nil {
			result.DatasetID = existing.ID
		}

		if !dryRun {
			switch action {
			case "create":
				ds, err := st.datasets.Create(ctx, domain.CreateDatasetRequest{
					Name:        def.Name,
					Title:       def.Title,
					PluralTitle: def.PluralTitle,
					Fields:      def.Fields,
				})
				if err != nil {
					return actions, fmt.Errorf("create %q: %w", def.Name, err)
				}
				result.DatasetID = ds.ID
				byName[ds.Name] = ds
			case "update":
				if _, err := st.datasets.Update(ctx, existing.ID, patch); err != nil {
					return actions, fmt.Errorf("update %q: %w", def.Name, err)
				}
			}
		}
		actions = append(actions, result)
	}
	return actions, nil
}

func newDatasetsApplyCmd(opts *rootOptions) *cobra.Command {
	var (
		file   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update datasets from a YAML definition file",
		Long: `Reads one or more YAML documents of the form

  name: books
  title: Book
  pluralTitle: Books
  fields:
    - name: author
      type: STRING
      title: Author

and creates the datasets that do not exist yet. Titles of existing datasets
are updated; their fields must already match.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file) //nolint:gosec // path is caller-controlled
				if err != nil {
					return fmt.Errorf("open definition: %w", err)
				}
				defer f.Close() //nolint:errcheck
				r = f
			}
			defs, err := loadDefinitions(r)
			if err != nil {
				return err
			}

			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			actions, err := applyDefinitions(cmd.Context(), st, defs, dryRun)
			if getOutputFormat(cmd) == "json" {
				if perr := PrintJSON(cmd.OutOrStdout(), actions); perr != nil {
					return perr
				}
				return err
			}
			rows := make([][]string, 0, len(actions))
			for _, a := range actions {
				rows = append(rows, []string{a.Action, a.Name, a.DatasetID})
			}
			if len(rows) > 0 {
				PrintTable(cmd.OutOrStdout(), []string{"action", "name", "id"}, rows)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Definition file, or - for stdin (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without applying it")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newDatasetsUpdateCmd(opts *rootOptions) *cobra.Command {
	var name, title, plural string

	cmd := &cobra.Command{
		Use:   "update <dataset-id>",
		Short: "Update dataset metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req domain.UpdateDatasetRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("plural-title") {
				req.PluralTitle = &plural
			}

			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			ds, err := st.datasets.Update(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return printDataset(cmd, ds)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New dataset name")
	cmd.Flags().StringVar(&title, "title", "", "New singular title")
	cmd.Flags().StringVar(&plural, "plural-title", "", "New plural title")

	return cmd
}

func newDatasetsDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <dataset-id>",
		Short: "Delete a dataset, its fields and its table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			ds, err := st.datasets.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Delete dataset %q and drop table %s?", ds.Name, ds.TableName))
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled.")
					return nil
				}
			}

			if err := st.datasets.Delete(cmd.Context(), ds.ID); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]string{"status": "deleted", "id": ds.ID})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dataset %q deleted\n", ds.Name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
