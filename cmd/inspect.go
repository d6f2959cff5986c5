package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/pjm-brief/internal/model"
)

var inspectSample int

// inspection is the YAML document printed by inspect.
type inspection struct {
	Tables  []string            `yaml:"tables"`
	Rows    string              `yaml:"rows"`
	Profile *model.TableProfile `yaml:"profile"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Describe the price table: columns, date range, row count, sample rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("inspect"); err != nil {
			return err
		}

		reader, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer reader.Close() //nolint:errcheck

		tables, err := reader.Tables(ctx)
		if err != nil {
			return err
		}
		prof, err := reader.Profile(ctx, inspectSample)
		if err != nil {
			return err
		}

		return writeInspection(cmd.OutOrStdout(), tables, prof)
	},
}

func writeInspection(w io.Writer, tables []string, prof *model.TableProfile) error {
	doc := inspection{
		Tables:  tables,
		Rows:    message.NewPrinter(language.English).Sprintf("%d", prof.RowCount),
		Profile: prof,
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "inspect: encode yaml")
	}
	return eris.Wrap(enc.Close(), "inspect: flush yaml")
}

func init() {
	inspectCmd.Flags().IntVar(&inspectSample, "sample", 5, "number of sample rows from the latest date")
	rootCmd.AddCommand(inspectCmd)
}
