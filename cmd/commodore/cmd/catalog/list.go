package catalog

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/projectsyn/commodore-go/cmd/commodore/cliutil"
	"github.com/projectsyn/commodore-go/pkg/cerrors"
)

var listAPIURL string
var listAPIToken string

func init() {
	Cmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listAPIURL, "api-url", "", "cluster registry API base URL")
	listCmd.Flags().StringVar(&listAPIToken, "api-token", "", "cluster registry API bearer token")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List clusters known to the cluster registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cliutil.BuildConfig(cliutil.CompileFlags{APIURL: listAPIURL, APIToken: listAPIToken})
		if err != nil {
			return err
		}
		client := cliutil.RegistryClient(cfg)
		if client == nil {
			return cerrors.Config("catalog list requires --api-url/--api-token (or COMMODORE_API_URL/COMMODORE_API_TOKEN)")
		}

		clusters, err := client.ListClusters(context.Background())
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"ID", "Tenant", "Display Name"})
		for _, c := range clusters {
			table.Append([]string{c.ID, c.TenantID, c.DisplayName})
		}
		table.Render()
		fmt.Fprintf(cmd.OutOrStdout(), "%d cluster(s)\n", len(clusters))
		return nil
	},
}
