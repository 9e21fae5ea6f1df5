package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanzil7890/schemarefly/internal/artifact"
	"github.com/tanzil7890/schemarefly/internal/types"
)

func newImpactCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "impact <model>",
		Short: "Print the downstream blast radius of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			manifestJSON, err := os.ReadFile(manifestPath)
			if err != nil {
				return ioErr(fmt.Errorf("read manifest: %w", err))
			}
			loaded, err := artifact.Load(manifestJSON, nil)
			if err != nil {
				return internalErr(err)
			}

			node, ok := resolveNode(loaded, args[0])
			if !ok {
				return usageErr("model %q not found in manifest", args[0])
			}

			downstream := loaded.Graph.Downstream(node.ID)
			sort.Strings(downstream)
			for _, id := range downstream {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "target/manifest.json", "path to the dbt manifest")
	return cmd
}

// resolveNode accepts any of a node's name forms: internal id, short name,
// fully-qualified name, or a package-prefixed short name.
func resolveNode(loaded *artifact.Loaded, name string) (types.Node, bool) {
	if n, ok := loaded.Graph.Nodes[name]; ok {
		return n, true
	}
	for _, n := range loaded.Nodes {
		if n.ShortName == name || n.FQN == name || n.PackageName+"."+n.ShortName == name {
			return n, true
		}
	}
	// Trailing-segment match, e.g. "orders" against "proj.marts.orders".
	for _, n := range loaded.Nodes {
		if strings.HasSuffix(n.FQN, "."+name) {
			return n, true
		}
	}
	return types.Node{}, false
}
