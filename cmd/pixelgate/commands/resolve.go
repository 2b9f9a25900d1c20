package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pixelgate/pixelgate/pkg/resolve"
)

func newResolveCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "resolve <key>",
		Short: "Resolve a single asset key",
		Long: `Resolve one asset key against the configured sources and report
which source delivered it.

The node is brought up, the key resolved, and the node shut down again.
With --output the asset body is written to a file; without it only the
resolution metadata is printed.`,
		Example: `  # Resolve a key and print where it came from
  pixelgate resolve assets/logo.png

  # Save the body alongside the metadata
  pixelgate resolve assets/logo.png --output logo.png

  # Machine-readable metadata
  pixelgate resolve assets/logo.png --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the asset body to this file")

	return cmd
}

func runResolve(ctx context.Context, key, output string) error {
	n, err := buildNode(ctx, configPath)
	if err != nil {
		return err
	}
	defer n.tel.Shutdown(context.Background()) //nolint:errcheck

	if _, err := n.orch.Initialize(ctx, n.initOptions()); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer func() {
		_, _ = n.orch.Shutdown(context.Background(), n.shutdownOptions(true))
	}()

	res, err := n.resolveAsset(ctx, key)
	if err != nil {
		if resolve.IsAllSourcesFailed(err) {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		return fmt.Errorf("resolution failed: %w", err)
	}
	if res == nil {
		return fmt.Errorf("%q not present at any source", key)
	}
	defer res.Body.Close()

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		if _, err := io.Copy(f, res.Body); err != nil {
			return fmt.Errorf("failed to write asset body: %w", err)
		}
	} else {
		// Drain so the cache write-back body is fully consumed.
		_, _ = io.Copy(io.Discard, res.Body)
	}

	return printResolution(key, res, output)
}

func printResolution(key string, res *resolve.Result, output string) error {
	if jsonOutput {
		payload := map[string]interface{}{
			"key":          key,
			"source":       res.SourceID,
			"size":         res.Size,
			"content_type": res.ContentType,
			"etag":         res.ETag,
		}
		if output != "" {
			payload["output"] = output
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	fmt.Printf("Key:          %s\n", key)
	fmt.Printf("Source:       %s\n", res.SourceID)
	fmt.Printf("Size:         %d bytes\n", res.Size)
	if res.ContentType != "" {
		fmt.Printf("Content-Type: %s\n", res.ContentType)
	}
	if res.ETag != "" {
		fmt.Printf("ETag:         %s\n", res.ETag)
	}
	if output != "" {
		fmt.Printf("Saved to:     %s\n", output)
	}
	return nil
}
