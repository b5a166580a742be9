package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/coder/serpent"

	"github.com/callscope/callscope/profiler/stagealloc"
)

func (r *Root) AllocateCmd() *serpent.Command {
	var (
		cores  int64
		stages []string
	)
	return &serpent.Command{
		Use:   "allocate",
		Short: "Split a core budget across weighted stages and print the plan.",
		Options: serpent.OptionSet{
			serpent.Option{
				Name:          "cores",
				Description:   "Total cores to divide.",
				Required:      true,
				Flag:          "cores",
				FlagShorthand: "n",
				Value:         serpent.Int64Of(&cores),
			},
			serpent.Option{
				Name:        "stage",
				Description: "Stage as name=weight. Repeatable.",
				Required:    true,
				Flag:        "stage",
				Value:       serpent.StringArrayOf(&stages),
			},
		},
		Handler: func(i *serpent.Invocation) error {
			weights := make(map[string]float64, len(stages))
			for _, stage := range stages {
				name, raw, found := strings.Cut(stage, "=")
				if !found {
					return fmt.Errorf("stage %q must look like name=weight", stage)
				}
				weight, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return fmt.Errorf("stage %q weight: %w", stage, err)
				}
				weights[name] = weight
			}

			counts, err := stagealloc.Allocate(int(cores), weights)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				_, _ = fmt.Fprintf(i.Stdout, "%s: %d\n", name, counts[name])
			}
			return nil
		},
	}
}
