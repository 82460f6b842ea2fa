// Command fluidmap runs the mapping engine locally against two fluidic
// graph documents on disk, with no store dependency — a standalone
// demonstration of the core library, mirroring the shape of a direct
// library-usage example rather than a service client.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluidlab/fluidmap/ferrors"
	"github.com/fluidlab/fluidmap/fluidic"
	"github.com/fluidlab/fluidmap/mapping"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fluidmap",
		Short: "Map a fluidic sketch onto an executable machine graph",
	}
	root.AddCommand(newMapCmd())
	root.AddCommand(newDumpCmd())
	return root
}

func newMapCmd() *cobra.Command {
	var sketchPath, machinePath string

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map a sketch graph onto a machine graph and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			sketch, err := loadGraph(sketchPath)
			if err != nil {
				return fmt.Errorf("load sketch: %w", err)
			}
			machine, err := loadGraph(machinePath)
			if err != nil {
				return fmt.Errorf("load machine: %w", err)
			}

			eng := mapping.NewEngine(sketch, machine)
			result, err := eng.StartMapping(cmd.Context(), nil)
			if err != nil {
				return classifyMappingError(err)
			}

			out := struct {
				Nodes map[string]string `json:"nodes"`
				Edges map[string]string `json:"edges"`
			}{
				Nodes: make(map[string]string),
				Edges: make(map[string]string),
			}
			for _, sc := range sketch.Containers() {
				if mid, ok := result.MappedContainerID(sc.ID); ok {
					out.Nodes[fmt.Sprintf("%d", sc.ID)] = fmt.Sprintf("%d", mid)
				}
			}
			for _, se := range sketch.Core().Edges() {
				if flow, ok := result.MappedEdge(se); ok {
					out.Edges[se.String()] = flow.ToText()
				}
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&sketchPath, "sketch", "", "path to the sketch graph JSON document")
	cmd.Flags().StringVar(&machinePath, "machine", "", "path to the machine graph JSON document")
	cmd.MarkFlagRequired("sketch")
	cmd.MarkFlagRequired("machine")
	return cmd
}

func newDumpCmd() *cobra.Command {
	var graphPath string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Parse a graph JSON document and print its line-oriented dump form",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(graphPath)
			if err != nil {
				return fmt.Errorf("load graph: %w", err)
			}
			return g.Dump(os.Stdout)
		},
	}
	cmd.Flags().StringVar(&graphPath, "graph", "", "path to the graph JSON document")
	cmd.MarkFlagRequired("graph")
	return cmd
}

func loadGraph(path string) (*fluidic.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fluidic.ParseGraphJSON(data)
}

func classifyMappingError(err error) error {
	switch {
	case errors.Is(err, ferrors.ErrIncompatibleSketch):
		return fmt.Errorf("sketch is structurally incompatible with machine: %w", err)
	case errors.Is(err, ferrors.ErrInfeasible):
		return fmt.Errorf("no feasible mapping exists: %w", err)
	default:
		return err
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
