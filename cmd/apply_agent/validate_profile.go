package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/apply-agent/internal/observability"
	"github.com/jonathan/apply-agent/internal/profile"
)

var validateProfileCmd = &cobra.Command{
	Use:   "validate-profile",
	Short: "Load and validate a candidate profile file",
	Long:  "Parses the candidate profile (JSON or YAML), checks field bounds, and prints a summary of what the agent will answer from.",
	RunE:  runValidateProfile,
}

var validateProfilePath string

func init() {
	validateProfileCmd.Flags().StringVarP(&validateProfilePath, "profile", "p", "", "Path to candidate profile (JSON or YAML)")
	_ = validateProfileCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(validateProfileCmd)
}

func runValidateProfile(_ *cobra.Command, _ []string) error {
	candidate, err := profile.Load(validateProfilePath)
	if err != nil {
		return fmt.Errorf("profile validation failed: %w", err)
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintProfile(candidate)
	_, _ = fmt.Fprintf(os.Stdout, "Profile OK: %s\n", validateProfilePath)

	return nil
}
