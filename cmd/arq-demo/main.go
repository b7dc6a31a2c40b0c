package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zsiec/arq/internal/harness"
	"github.com/zsiec/arq/internal/logger"
	"github.com/zsiec/arq/pkg/version"
)

func main() {
	var (
		showVersion bool
		verbose     bool
		sweep       bool
		timeout     time.Duration
	)

	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&verbose, "verbose", false, "Log protocol events while running")
	flag.BoolVar(&sweep, "sweep", false, "Also run the window size sweep")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall run deadline")
	flag.Parse()

	if showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	runner := harness.NewRunner(logger.NewLogrusAdapter(logrus.NewEntry(log)))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Println("Go-Back-N ARQ protocol analysis")
	fmt.Println()

	optimal, err := runner.Run(ctx, harness.OptimalScenario())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Optimal scenario failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(harness.RenderResult(optimal))

	realistic, err := runner.Run(ctx, harness.RealisticScenario())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Realistic scenario failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(harness.RenderResult(realistic))

	results := []*harness.Result{optimal, realistic}

	if sweep {
		for _, sc := range harness.WindowSweepScenarios() {
			res, err := runner.Run(ctx, sc)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Scenario %s failed: %v\n", sc.Name, err)
				os.Exit(1)
			}
			results = append(results, res)
		}
	}

	fmt.Println(harness.RenderComparison(results))
}
