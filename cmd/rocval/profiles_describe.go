package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rocval-dev/rocval/internal/profiles"
)

func init() {
	profilesCmd.AddCommand(newProfilesDescribeCmd())
}

func newProfilesDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "describe <token>",
		Short:   "Show a profile's requirement tree",
		Long:    `Print a profile's identity and its requirements with their checks and severities.`,
		Example: `  rocval profiles describe workflow-ro-crate`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			registry, err := loadRegistry(resolveProfilesDir())
			if err != nil {
				return err
			}

			profile, err := registry.Resolve(args[0])
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(registry.Tokens(), ", "))
			}

			describeProfile(os.Stdout, profile)
			return nil
		},
	}
}

// describeProfile prints a profile's identity and its visible requirement
// tree.
func describeProfile(w io.Writer, p *profiles.Profile) {
	fmt.Fprintf(w, "Profile:  %s (v%s)\n", p.Token, p.Version)
	fmt.Fprintf(w, "ID:       %s\n", p.ID)
	fmt.Fprintf(w, "Name:     %s\n", p.Name)
	if p.ExtendsToken() != "" {
		fmt.Fprintf(w, "Extends:  %s\n", p.ExtendsToken())
	}
	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", p.Description)
	}

	fmt.Fprintln(w, "\nRequirements:")
	printRequirements(w, p.Requirements)
}

// printRequirements walks the tree in declaration order. Hidden requirements
// stay out of the listing.
func printRequirements(w io.Writer, reqs []*profiles.Requirement) {
	for _, req := range reqs {
		if req.Hidden {
			continue
		}

		indent := strings.Repeat("  ", strings.Count(req.Path, "."))
		fmt.Fprintf(w, "%s  %s. %s [%s]\n", indent, req.Path, req.Name, req.Severity)
		for _, chk := range req.Checks {
			fmt.Fprintf(w, "%s      %s  %s\n", indent, chk.ID, chk.Name)
		}
		printRequirements(w, req.Children)
	}
}
