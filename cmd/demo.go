package cmd

import (
	"fmt"
	"os"

	"github.com/coder/serpent"

	"github.com/callscope/callscope/profiler"
	"github.com/callscope/callscope/profiler/pprofexport"
	"github.com/callscope/callscope/profiler/workload"
)

func (r *Root) DemoCmd() *serpent.Command {
	var pprofOutput string
	return &serpent.Command{
		Use:   "demo",
		Short: "Run an instrumented sample workload and print the call tree.",
		Options: serpent.OptionSet{
			serpent.Option{
				Name:        "pprof-output",
				Description: "Also write the recorded tree as a pprof profile to this path.",
				Required:    false,
				Flag:        "pprof-output",
				Default:     "",
				Value:       serpent.StringOf(&pprofOutput),
			},
		},
		Handler: func(i *serpent.Invocation) error {
			logger := r.Logger(i)
			ctx := i.Context()

			p := profiler.New()
			if err := workload.Run(ctx, p); err != nil {
				logger.Error().Err(err).Msg("run workload")
				return fmt.Errorf("run workload: %w", err)
			}

			if err := p.WriteReport(i.Stdout); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			if pprofOutput != "" {
				converter := pprofexport.New()
				converter.Convert(p.Snapshot())
				data, err := converter.Encode()
				if err != nil {
					return fmt.Errorf("encode pprof: %w", err)
				}
				if err := os.WriteFile(pprofOutput, data, 0o644); err != nil {
					return fmt.Errorf("write pprof: %w", err)
				}
				logger.Info().Str("path", pprofOutput).Msg("wrote pprof profile")
			}
			return nil
		},
	}
}
