package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kintree/pkg/tree"
)

// newCheckCmd creates the check command, which validates a snapshot file
// and reports the generation assignment without producing artifacts.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Validate records and report generation assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), args[0])
		},
	}
}

func runCheck(ctx context.Context, input string) error {
	logger := loggerFromContext(ctx)

	snap, err := tree.ReadSnapshotFile(input)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded %s", input)

	g, dataErrs := tree.Build(snap)
	printKeyValue("persons", fmt.Sprintf("%d", g.PersonCount()))
	printKeyValue("relationships", fmt.Sprintf("%d", g.RelationshipCount()))

	for _, e := range dataErrs {
		printWarning("excluded: %s", e.Error())
	}

	gens, err := tree.AssignGenerations(g)
	if err != nil {
		printError("generation assignment failed: %s", err)
		return err
	}

	// Report generation sizes from the top of the tree down.
	counts := make(map[int]int)
	for _, gen := range gens {
		counts[gen]++
	}
	levels := make([]int, 0, len(counts))
	for gen := range counts {
		levels = append(levels, gen)
	}
	sort.Ints(levels)
	for _, gen := range levels {
		printDetail("generation %d: %d person(s)", gen, counts[gen])
	}

	if len(dataErrs) > 0 {
		printWarning("%d record(s) excluded", len(dataErrs))
	} else {
		printSuccess("All records valid")
	}
	return nil
}
