package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"styleforge/internal/config"
	"styleforge/internal/imageio"
	"styleforge/internal/net"
	"styleforge/internal/synth"
	"styleforge/internal/tensor"
	"styleforge/internal/vgg"
)

func main() {
	var (
		cfgPath        string
		contentPath    string
		stylePath      string
		outputPath     string
		weightsPath    string
		imageSize      int
		contentWeight  float64
		styleWeight    float64
		steps          int
		reportInterval int
		learningRate   float64
		seed           int64
		initMode       string
		numWorkers     int
	)

	cmd := &cobra.Command{
		Use:   "styleforge",
		Short: "Synthesize an image blending one photo's content with another's style",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg := config.Default()
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			cfg.ApplyOverrides(config.Overrides{
				ContentPath:    contentPath,
				StylePath:      stylePath,
				OutputPath:     outputPath,
				WeightsPath:    weightsPath,
				ImageSize:      imageSize,
				ContentWeight:  contentWeight,
				StyleWeight:    styleWeight,
				NumSteps:       steps,
				ReportInterval: reportInterval,
				LearningRate:   learningRate,
				Seed:           seed,
				Init:           initMode,
				NumWorkers:     numWorkers,
			})
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "Path to YAML config")
	flags.StringVar(&contentPath, "content", "", "Content image path")
	flags.StringVar(&stylePath, "style", "", "Style image path")
	flags.StringVar(&outputPath, "output", "", "Output image path")
	flags.StringVar(&weightsPath, "weights", "", "VGG-19 safetensors weights path")
	flags.IntVar(&imageSize, "image-size", 0, "Working resolution (square)")
	flags.Float64Var(&contentWeight, "content-weight", 0, "Content loss weight")
	flags.Float64Var(&styleWeight, "style-weight", 0, "Style loss weight")
	flags.IntVar(&steps, "steps", 0, "Number of optimization steps")
	flags.IntVar(&reportInterval, "report-interval", 0, "Log progress every N steps")
	flags.Float64Var(&learningRate, "learning-rate", 0, "Adam learning rate")
	flags.Int64Var(&seed, "seed", 0, "PRNG seed for noise initialization")
	flags.StringVar(&initMode, "init", "", "Initial image: noise or content")
	flags.IntVar(&numWorkers, "num-workers", 0, "Convolution worker goroutines")

	if err := cmd.Execute(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	contentImg, err := imageio.Load(cfg.ContentPath, cfg.ImageSize)
	if err != nil {
		return fmt.Errorf("load content image: %w", err)
	}
	styleImg, err := imageio.Load(cfg.StylePath, cfg.ImageSize)
	if err != nil {
		return fmt.Errorf("load style image: %w", err)
	}

	layers, err := vgg.Load(cfg.WeightsPath)
	if err != nil {
		return fmt.Errorf("load feature extractor: %w", err)
	}

	norm := net.NewNormalization(net.DefaultMean, net.DefaultStd)
	nw, contentProbes, styleProbes, err := net.Assemble(layers, norm, contentImg, styleImg, net.AssembleConfig{
		ContentLayers: cfg.ContentLayers,
		StyleLayers:   cfg.StyleLayers,
		Workers:       cfg.NumWorkers,
	})
	if err != nil {
		return fmt.Errorf("assemble extractor: %w", err)
	}
	slog.Info("extractor assembled",
		"layers", len(nw.Names()),
		"content_probes", len(contentProbes),
		"style_probes", len(styleProbes),
	)

	var img *tensor.Tensor
	switch cfg.Init {
	case config.InitContent:
		img = contentImg.Clone()
	default:
		rng := rand.New(rand.NewSource(cfg.Seed))
		img = tensor.Randn(rng, 1, 3, cfg.ImageSize, cfg.ImageSize)
	}

	runCfg := synth.RunConfig{
		Steps:          cfg.NumSteps,
		ReportInterval: cfg.ReportInterval,
		ContentWeight:  cfg.ContentWeight,
		StyleWeight:    cfg.StyleWeight,
		LearningRate:   cfg.LearningRate,
	}
	if err := synth.Run(ctx, runCfg, nw, contentProbes, styleProbes, img); err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	if err := imageio.Save(img, cfg.OutputPath); err != nil {
		return fmt.Errorf("save output: %w", err)
	}
	slog.Info("output written", "path", cfg.OutputPath, "steps", cfg.NumSteps)
	return nil
}
