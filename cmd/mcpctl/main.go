package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/modelriver/mcp-gateway/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	gatewayURL string
	token      string
	jsonOut    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcpctl",
	Short: "MCP directory gateway CLI",
	Long: `mcpctl queries an MCP directory gateway: list and search MCP server
registrations, fetch server detail, and list your activated servers.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetEnvPrefix("mcpctl")
		viper.AutomaticEnv()

		if gatewayURL == "" {
			gatewayURL = viper.GetString("gateway_url")
		}
		if gatewayURL == "" {
			gatewayURL = "http://localhost:8080"
		}
		if token == "" {
			token = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", "", "gateway base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "ModelScope API token")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "emit raw JSON instead of a table")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(detailCmd)
	rootCmd.AddCommand(operationalCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	opts := []client.Option{}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(gatewayURL, opts...)
}

func callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── list ─────────────────────────────────────────────────────────────────────

var (
	listSearch string
	listCount  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List MCP servers, optionally filtered by a search keyword",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := callCtx()
		defer cancel()

		result, err := newClient().ListServers(ctx, client.ListOptions{
			Search:     listSearch,
			TotalCount: listCount,
		})
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(result)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
		for _, s := range result.Servers {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, s.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d server(s)\n", result.TotalCount)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listSearch, "search", "", "search keyword for server name or owner")
	listCmd.Flags().IntVar(&listCount, "count", 20, "number of results to return (1-100)")
}

// ── detail ───────────────────────────────────────────────────────────────────

var detailCmd = &cobra.Command{
	Use:   "detail <server-id>",
	Short: "Show detail and endpoints for one MCP server (@group/name)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := callCtx()
		defer cancel()

		detail, err := newClient().GetServer(ctx, args[0])
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(detail)
		}

		fmt.Printf("ID:          %s\n", detail.ID)
		fmt.Printf("Name:        %s\n", detail.Name)
		fmt.Printf("Description: %s\n", detail.Description)
		if len(detail.Servers) == 0 {
			fmt.Println("Endpoints:   (none)")
			return nil
		}
		fmt.Println("Endpoints:")
		for _, ep := range detail.Servers {
			fmt.Printf("  %-16s %s\n", ep.Type, ep.URL)
		}
		return nil
	},
}

// ── operational ──────────────────────────────────────────────────────────────

var operationalCmd = &cobra.Command{
	Use:   "operational",
	Short: "List your activated MCP servers with live endpoints (requires --token)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := callCtx()
		defer cancel()

		result, err := newClient().ListOperationalServers(ctx)
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(result)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tURL")
		for _, s := range result.Servers {
			for _, ep := range s.MCPServers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, ep.Type, ep.URL)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d operational server(s)\n", result.TotalCount)
		return nil
	},
}

// ── health / version ─────────────────────────────────────────────────────────

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check gateway health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := callCtx()
		defer cancel()

		if err := newClient().Health(ctx); err != nil {
			return err
		}
		fmt.Println("gateway is healthy")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print mcpctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("mcpctl", version)
	},
}
