package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yubzen/tripweaver/internal/agents"
	"github.com/yubzen/tripweaver/internal/planner"
)

// NewGraphCmd prints the travel workflow as a Mermaid flowchart. It builds
// the graph without any backends, which also validates its topology.
func NewGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the travel workflow as a Mermaid flowchart",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := planner.NewTravelGraph(agents.Deps{})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), g.Mermaid())
			return nil
		},
	}
}
