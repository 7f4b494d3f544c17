package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	profilesCmd.AddCommand(newProfilesListCmd())
}

func newProfilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List available profiles",
		Long:    `List every validation profile found in the profiles directory.`,
		Example: `  rocval profiles list --profiles-dir ./profiles`,
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			registry, err := loadRegistry(resolveProfilesDir())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			if _, err := fmt.Fprintln(w, "TOKEN\tVERSION\tEXTENDS\tCHECKS\tNAME"); err != nil {
				return fmt.Errorf("failed to write header: %w", err)
			}

			for _, p := range registry.Profiles() {
				extends := p.ExtendsToken()
				if extends == "" {
					extends = "-"
				}

				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					p.Token,
					p.Version,
					extends,
					p.CheckCount(),
					p.Name,
				); err != nil {
					return fmt.Errorf("failed to write profile info: %w", err)
				}
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to flush writer: %w", err)
			}

			return nil
		},
	}
}
