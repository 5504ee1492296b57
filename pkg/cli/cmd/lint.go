package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/charmbus/charmbus/pkg/types"
)

var (
	strict     bool
	quiet      bool
	recursive  bool
	exitOnFail bool
)

// Color setup for formatting
var (
	errorColor   = color.New(color.FgRed, color.Bold)
	fileColor    = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
)

// lintCmd represents the lint command
var lintCmd = &cobra.Command{
	Use:   "lint [file or directory]...",
	Short: "Validate charm spec files",
	Long: `Lint and validate spec files exchanged over charm relations:
SLO specifications (multi-document YAML), package requirement specs
(YAML), and auth backend specs (JSON).

Examples:
  # Lint a single spec file
  charmbus lint slos.yaml

  # Recursively lint all spec files in a directory
  charmbus lint --recursive ./specs/

  # Treat unrecognized documents as errors
  charmbus lint --strict slos.yaml

  # Exit on the first validation failure
  charmbus lint --exit-on-fail slos.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("at least one file or directory is required")
		}

		files, err := gatherSpecFiles(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no spec files found to lint")
		}
		return runLint(files)
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().BoolVar(&strict, "strict", false, "Treat unrecognized documents as errors")
	lintCmd.Flags().BoolVar(&quiet, "quiet", false, "Only show errors, no progress or success messages")
	lintCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Recursively process directories")
	lintCmd.Flags().BoolVar(&exitOnFail, "exit-on-fail", false, "Exit on first validation failure")
}

func gatherSpecFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", arg, err)
		}
		if !info.IsDir() {
			if hasSpecExtension(arg) {
				files = append(files, arg)
			} else if !quiet {
				fmt.Printf("Skipping non-spec file: %s\n", arg)
			}
			continue
		}
		if recursive {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && hasSpecExtension(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("error walking directory %s: %w", arg, err)
			}
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("error reading directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() && hasSpecExtension(e.Name()) {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
	}
	return files, nil
}

func hasSpecExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml" || ext == ".json"
}

func runLint(files []string) error {
	startTime := time.Now()
	totalErrors := 0

	for _, filename := range files {
		if verbose && !quiet {
			fmt.Printf("Linting %s...\n", filename)
		}
		errs := lintFile(filename)
		if len(errs) > 0 {
			fileColor.Println(filename)
			for _, err := range errs {
				errorColor.Printf("  ✗ %v\n", err)
			}
			totalErrors += len(errs)
			if exitOnFail {
				return fmt.Errorf("validation failed")
			}
			continue
		}
		if !quiet {
			successColor.Printf("✓ %s\n", filename)
		}
	}

	if !quiet {
		fmt.Printf("Checked %d file(s), %d error(s) in %s\n",
			len(files), totalErrors, time.Since(startTime).Round(time.Millisecond))
	}
	if totalErrors > 0 {
		return fmt.Errorf("%d validation error(s)", totalErrors)
	}
	return nil
}

// lintFile validates one spec file, returning every error found in it.
func lintFile(filename string) []error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return []error{err}
	}

	if strings.ToLower(filepath.Ext(filename)) == ".json" {
		if _, err := types.ParseAuthServiceSpec(string(data)); err != nil {
			return []error{err}
		}
		return nil
	}

	docs, err := types.DecodeDocuments(string(data))
	if err != nil {
		return []error{err}
	}

	var errs []error
	for i, doc := range docs {
		if err := lintDocument(doc); err != nil {
			errs = append(errs, fmt.Errorf("document %d: %w", i+1, err))
		}
	}
	return errs
}

// lintDocument identifies a YAML document by its top-level keys and runs
// the matching validation.
func lintDocument(doc map[string]interface{}) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	if _, ok := doc["slos"]; ok {
		var spec types.SLOSpec
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return fmt.Errorf("malformed SLO spec: %w", err)
		}
		return spec.Validate()
	}
	if _, ok := doc["packages"]; ok {
		spec, err := types.ParsePackageSpec(string(raw))
		if err != nil {
			return err
		}
		return spec.Validate()
	}
	if strict {
		return fmt.Errorf("unrecognized spec document")
	}
	return nil
}
