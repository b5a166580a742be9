package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/coder/serpent"

	"github.com/callscope/callscope/profiler"
	"github.com/callscope/callscope/profiler/promexport"
	"github.com/callscope/callscope/profiler/stagealloc"
	"github.com/callscope/callscope/profiler/workload"
)

type ServeConfig struct {
	ListenAddress  string        `yaml:"listen_address"`
	Cores          int           `yaml:"cores"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	Stages         []StageWeight `yaml:"stages"`
}

type StageWeight struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

func defaultServeConfig() ServeConfig {
	return ServeConfig{
		ListenAddress:  ":2112",
		Cores:          runtime.NumCPU(),
		UpdateInterval: 10 * time.Second,
		Stages: []StageWeight{
			{Name: "parse", Weight: 3},
			{Name: "transform", Weight: 2},
			{Name: "flush", Weight: 1},
		},
	}
}

func (r *Root) ServeCmd() *serpent.Command {
	var configPath string
	return &serpent.Command{
		Use:   "serve",
		Short: "Run a continuous instrumented workload and expose metrics and the call-tree report over HTTP.",
		Options: serpent.OptionSet{
			serpent.Option{
				Name:          "config",
				Description:   "YAML config file to use. Defaults are used when omitted.",
				Required:      false,
				Flag:          "config",
				FlagShorthand: "c",
				Default:       "",
				Value:         serpent.StringOf(&configPath),
			},
		},
		Handler: func(i *serpent.Invocation) error {
			logger := r.Logger(i)
			ctx := i.Context()

			config := defaultServeConfig()
			if configPath != "" {
				yamlData, err := os.ReadFile(configPath)
				if err != nil {
					logger.Error().Err(err).Str("config", configPath).Msg("read config")
					return fmt.Errorf("read config: %w", err)
				}
				if err := yaml.Unmarshal(yamlData, &config); err != nil {
					logger.Error().Err(err).Str("config", configPath).Msg("unmarshal config")
					return fmt.Errorf("unmarshal config: %w", err)
				}
			}

			weights := make(map[string]float64, len(config.Stages))
			for _, stage := range config.Stages {
				weights[stage.Name] = stage.Weight
			}
			counts, err := stagealloc.Allocate(config.Cores, weights)
			if err != nil {
				return fmt.Errorf("allocate stages: %w", err)
			}

			p := profiler.New()
			collector := promexport.New(
				logger.With().Str("service", "promexport").Logger(),
				p, "callscope", prometheus.Labels{"listen": config.ListenAddress},
			)

			reg := prometheus.NewRegistry()
			if err := reg.Register(collector); err != nil {
				return fmt.Errorf("register collector: %w", err)
			}

			for stage, count := range counts {
				logger.Info().
					Str("stage", stage).
					Int("threads", count).
					Msg("starting stage workers")
				for w := 0; w < count; w++ {
					go runWorker(ctx, p, stage)
				}
			}

			go func() {
				ticker := time.NewTicker(config.UpdateInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						names := collector.Update()
						// Each interval is reported fresh so the recorded
						// forests do not grow without bound.
						p.Reset()
						logger.Debug().Int("call_names", names).Msg("snapshot updated")
					}
				}
			}()

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
				Registry: reg,
			}))
			mux.HandleFunc("/report", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				_ = p.WriteReport(w)
			})

			logger.Info().Str("address", config.ListenAddress).Msg("serving")
			return http.ListenAndServe(config.ListenAddress, mux)
		},
	}
}

func runWorker(ctx context.Context, p *profiler.Profiler, stage string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		workload.Worker(ctx, p, stage)
		time.Sleep(100 * time.Millisecond)
	}
}
