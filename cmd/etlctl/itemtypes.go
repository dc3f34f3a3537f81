package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/etl/internal/application"
	"github.com/JonMunkholm/etl/internal/host"
)

func newItemTypesCmd() *cobra.Command {
	var (
		typesFile string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "itemtypes",
		Short: "List the item types a plan can name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("types-file") {
				typesFile = os.Getenv("HOST_ITEMTYPES_PATH")
			}
			types, err := application.LoadTypes(typesFile)
			if err != nil {
				return err
			}
			printItemTypes(cmd.OutOrStdout(), types, verbose)
			return nil
		},
	}
	cmd.Flags().StringVar(&typesFile, "types-file", "", "extra item types YAML (default from HOST_ITEMTYPES_PATH)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list the fields and their rules")
	return cmd
}

func printItemTypes(w io.Writer, types *host.TypeRegistry, verbose bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tNAME\tLABEL\tFIELDS")
	for _, t := range types.All() {
		names := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			names = append(names, f.Name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Group, t.Name, t.Label, strings.Join(names, ","))
		if !verbose {
			continue
		}
		for _, f := range t.Fields {
			fmt.Fprintf(tw, "\t\t  %s\t%s\n", f.Name, f.Rules)
		}
	}
	_ = tw.Flush()
}
