package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "discourse",
		Short: "Turn-based discourse between two text-generation agents",
		Long:  "Orchestrates a structured exchange between two agents under human refereeing. Debate mode alternates opposing positions over a shared transcript; workshop mode cycles an author and an editor over a git-versioned document.",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newInspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
