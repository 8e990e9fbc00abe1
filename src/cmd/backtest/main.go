package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/quantlabs/defi-yield-backtester/src/backtester"
	"github.com/quantlabs/defi-yield-backtester/src/utils"
)

type RunArgs struct {
	GoEnv      string
	ConfigPath string
	OutputPath string
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/backtest/main.go --config run.yaml",
	Short: "Run a yield strategy backtest from a YAML run file",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			log.Fatalf("error getting config: %v", err)
		}

		outputPath, err := cmd.Flags().GetString("output")
		if err != nil {
			log.Fatalf("error getting output: %v", err)
		}

		result, err := Run(RunArgs{
			GoEnv:      goEnv,
			ConfigPath: configPath,
			OutputPath: outputPath,
		})
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		result.WriteSummary(os.Stdout)
	},
}

func Run(args RunArgs) (*backtester.BacktestResult, error) {
	projectDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	if err := utils.InitEnvironmentVariables(projectDir, args.GoEnv); err != nil {
		return nil, err
	}

	cfg, err := LoadBacktestConfig(args.ConfigPath)
	if err != nil {
		return nil, err
	}

	runCfg, err := cfg.BuildRunConfig()
	if err != nil {
		return nil, err
	}

	engine, err := backtester.NewEngine(runCfg)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("running backtest %s -> %s with %d strategies", cfg.Start, cfg.End, len(cfg.Strategies))

	result, err := engine.Run(ctx)
	if err != nil {
		return nil, err
	}

	if args.OutputPath != "" {
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, err
		}

		if err := os.WriteFile(args.OutputPath, raw, 0644); err != nil {
			return nil, err
		}

		log.Infof("wrote full result to %s", args.OutputPath)
	}

	return result, nil
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in")
	runCmd.PersistentFlags().String("config", "backtest.yaml", "Path to the YAML run file")
	runCmd.PersistentFlags().String("output", "", "Optional path for the full JSON result")

	if err := runCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
