package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/charmbus/charmbus/pkg/pack"
)

var (
	packTool      string
	packOutput    string
	packSubstrate string
	packTags      []string
)

// variantsFile is the on-disk manifest listing buildable variants.
type variantsFile struct {
	Variants []pack.Variant `yaml:"variants"`
}

// packCmd represents the pack command
var packCmd = &cobra.Command{
	Use:   "pack <variants.yaml>",
	Short: "Build charm artifacts",
	Long: `Build charm artifacts for the variants listed in a manifest file,
filtered by substrate and tags. Each selected variant is built with
the external charm build tool and the produced archive is renamed to
<variant>.charm in the output directory. The first failing build
aborts the run.

Examples:
  charmbus pack variants.yaml
  charmbus pack variants.yaml --substrate k8s
  charmbus pack variants.yaml --tags stable --output ./dist`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var manifest variantsFile
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return fmt.Errorf("failed to parse variants manifest: %w", err)
		}
		if len(manifest.Variants) == 0 {
			return fmt.Errorf("no variants listed in %s", args[0])
		}

		packer := pack.New(
			pack.WithTool(packTool),
			pack.WithOutputDir(packOutput),
			pack.WithSubstrate(packSubstrate),
			pack.WithTags(packTags...),
		)
		artifacts, err := packer.Pack(cmd.Context(), manifest.Variants)
		if err != nil {
			return err
		}
		for _, a := range artifacts {
			fmt.Println("📦 Built:", a.Path)
		}
		if len(artifacts) == 0 {
			fmt.Println("No variants matched the selection")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packCmd)

	packCmd.Flags().StringVar(&packTool, "tool", pack.DefaultTool, "Charm build tool to invoke")
	packCmd.Flags().StringVarP(&packOutput, "output", "o", ".", "Directory for renamed artifacts")
	packCmd.Flags().StringVar(&packSubstrate, "substrate", "", "Only build variants of this substrate")
	packCmd.Flags().StringSliceVar(&packTags, "tags", nil, "Only build variants carrying all of these tags")
}
