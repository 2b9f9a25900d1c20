package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pixelgate/pixelgate/pkg/config"
	"github.com/pixelgate/pixelgate/pkg/engine"
)

func newGraphCommand() *cobra.Command {
	var (
		manifestPath string
		dot          bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the component dependency graph",
		Long: `Inspect the component dependency graph and the order components
would initialize in.

Reads the manifest named by --manifest (or the configured manifest
path) and prints the computed initialization order. With --dot the
graph is emitted in Graphviz DOT format instead.`,
		Example: `  # Print the initialization order
  pixelgate graph

  # Render the graph with Graphviz
  pixelgate graph --dot | dot -Tsvg -o graph.svg

  # Inspect a manifest that is not yet deployed
  pixelgate graph --manifest staging-manifest.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(manifestPath, dot)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Manifest file to inspect (defaults to the configured path)")
	cmd.Flags().BoolVar(&dot, "dot", false, "Emit Graphviz DOT format")

	return cmd
}

func runGraph(manifestPath string, dot bool) error {
	if manifestPath == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		manifestPath = cfg.ManifestPath
	}

	manifest, err := config.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	graph, err := manifest.Graph()
	if err != nil {
		return err
	}

	order, err := graph.ComputeOrder()
	if err != nil {
		if engine.IsCycleDetected(err) {
			return fmt.Errorf("manifest %s: %w", manifestPath, err)
		}
		return err
	}

	if dot {
		fmt.Print(graph.ToDOT(nil))
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"manifest": manifestPath,
			"order":    order,
			"critical": manifest.Critical,
		})
	}

	fmt.Printf("Manifest: %s\n", manifestPath)
	fmt.Printf("Components: %d\n\n", graph.Len())
	fmt.Println("Initialization order:")
	for i, name := range order {
		deps := graph.Dependencies(name)
		if len(deps) == 0 {
			fmt.Printf("  %d. %s\n", i+1, name)
			continue
		}
		fmt.Printf("  %d. %s (after %s)\n", i+1, name, strings.Join(deps, ", "))
	}
	if len(manifest.Critical) > 0 {
		fmt.Printf("\nCritical: %s\n", strings.Join(manifest.Critical, ", "))
	}
	return nil
}
