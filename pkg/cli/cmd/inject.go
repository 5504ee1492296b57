package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/charmbus/charmbus/pkg/interfaces/slo"
	"github.com/charmbus/charmbus/pkg/topology"
	"github.com/charmbus/charmbus/pkg/types"
)

var (
	injectQuery       string
	injectModel       string
	injectModelUUID   string
	injectApplication string
	injectUnit        string
)

// injectCmd represents the inject command
var injectCmd = &cobra.Command{
	Use:   "inject [spec file]",
	Short: "Inject topology labels into queries",
	Long: `Rewrite PromQL queries to carry topology label matchers, either for
a single query given with --query or for every SLI query in an SLO
spec file. The rewritten result is printed to stdout. Injection is
idempotent: labels already present are not duplicated.

Examples:
  # Rewrite a single query
  charmbus inject --query 'sum(rate(errors_total[5m]))' --application foo --unit foo/0

  # Rewrite every SLI query in a spec file
  charmbus inject slos.yaml --model prod --application foo`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		topo := topology.Topology{
			Model:       injectModel,
			ModelUUID:   injectModelUUID,
			Application: injectApplication,
			Unit:        injectUnit,
		}
		labels := topo.LabelMatchers()
		if len(labels) == 0 {
			return fmt.Errorf("no topology given; set at least one of --model, --model-uuid, --application, --unit")
		}

		if injectQuery != "" {
			fmt.Println(topology.InjectLabels(injectQuery, labels))
			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("a spec file is required unless --query is given")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		docs, err := types.DecodeDocuments(string(data))
		if err != nil {
			return err
		}
		for _, doc := range docs {
			slo.InjectTopologyIntoDocument(doc, labels)
		}
		out, err := types.EncodeDocuments(docs)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(injectCmd)

	injectCmd.Flags().StringVarP(&injectQuery, "query", "q", "", "Single query to rewrite instead of a spec file")
	injectCmd.Flags().StringVar(&injectModel, "model", "", "Model name")
	injectCmd.Flags().StringVar(&injectModelUUID, "model-uuid", "", "Model UUID")
	injectCmd.Flags().StringVar(&injectApplication, "application", "", "Application name")
	injectCmd.Flags().StringVar(&injectUnit, "unit", "", "Unit name")
}
