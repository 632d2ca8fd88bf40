package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// exitCode carries a subcommand's exit status through cobra
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

// codeErr converts a doXxx status into a cobra error
func codeErr(code int) error {
	if code == 0 {
		return nil
	}
	return exitCode(code)
}

// execute runs the CLI with args and returns the process exit status
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var code exitCode
	if errors.As(err, &code) {
		return int(code)
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

// globalFlags are the persistent flags shared by all subcommands
type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "sitemap-gen",
		Short: "Generate sitemaps.org sitemaps and a sitemap index from database records",
		Long: `sitemap-gen queries the configured record source for every sitemap definition,
writes sitemap_<postfix>.xml documents (plus one per parent record for definitions
with a child relation) and a sitemap.xml index referencing them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "config.yaml", "Path to YAML config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "Optional .env file loaded before the config (empty to skip)")
	pf.StringVar(&flags.logLevel, "loglevel", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newGenerateCmd(flags, stdout, stderr),
		newValidateCmd(flags, stdout, stderr),
		newListSitemapsCmd(flags, stdout, stderr),
		newStatusCmd(flags, stdout, stderr),
		newMcpServerCmd(flags, stdout, stderr),
		newVersionCmd(stdout),
	)
	return root
}

func newGenerateCmd(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var noState bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate all sitemaps and the sitemap index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return codeErr(doGenerate(flags.configPath, flags.envFile, flags.logLevel, noState, stdout, stderr))
		},
	}
	cmd.Flags().BoolVar(&noState, "no-state", false, "Do not open the state store (no change tracking or stale detection)")
	return cmd
}

func newValidateCmd(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [postfix]",
		Short: "Validate the configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postfix := ""
			if len(args) == 1 {
				postfix = args[0]
			}
			return codeErr(doValidate(flags.configPath, flags.envFile, postfix, stdout, stderr))
		},
	}
}

func newListSitemapsCmd(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list-sitemaps [postfix...]",
		Short: "List configured sitemap definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return codeErr(doListSitemaps(flags.configPath, flags.envFile, args, stdout, stderr))
		},
	}
}

func newStatusCmd(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last generation run recorded in the state store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return codeErr(doStatus(flags.configPath, flags.envFile, runID, stdout, stderr))
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Show this run ID instead of the last run")
	return cmd
}

func newMcpServerCmd(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var (
		transport string
		port      int
	)
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Start an MCP (Model Context Protocol) server for AI tool integration",
		Long: `Start an MCP server exposing sitemap generation as tools.

Available MCP Tools:
  list_sitemaps      List configured sitemap definitions and their files
  generate_sitemaps  Start a background generation run
  get_job_status     Check a generation job
  cancel_job         Cancel a running generation job
  get_run            Show a stored run record (last run by default)
  get_sitemap_file   Show the tracked state of one sitemap file`,
		Example: `  # Start with stdio transport (for Claude Desktop)
  sitemap-gen mcp-server --config config.yaml

  # Start with SSE transport on port 8080
  sitemap-gen mcp-server --config config.yaml --transport sse --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return codeErr(doMcpServer(flags.configPath, flags.envFile, transport, port, flags.logLevel, stdout, stderr))
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type (stdio, sse)")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port (for sse transport)")
	return cmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "sitemap-gen %s\n", version)
		},
	}
}
