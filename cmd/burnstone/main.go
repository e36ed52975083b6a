// Command burnstone sweeps every logical processor with a stress
// kernel, one processor at a time, and exits non-zero if any
// computation error was detected.
//
// Usage:
//
//	burnstone [flags] <seconds-per-core>
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/burnstone-dev/burnstone"
)

func main() {
	var (
		algo    string
		list    bool
		verbose bool
	)

	version, sum := burnstone.Version()
	if version == "" {
		version = "(devel)"
	}
	if sum != "" {
		version += " " + sum
	}

	root := &cobra.Command{
		Use:          "burnstone <seconds-per-core>",
		Version:      version,
		Short:        "CPU stability stress test",
		Long:         "Stresses every logical processor in sequence and reports computation errors.\nA clean pass is no proof of stability, but any error is proof of instability.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, a := range burnstone.Algorithms() {
					fmt.Println(a)
				}
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one argument: whole seconds to spend per core")
			}
			seconds, err := strconv.Atoi(args[0])
			if err != nil || seconds <= 0 {
				return fmt.Errorf("seconds-per-core must be a positive integer, got %q", args[0])
			}

			log := logrus.New()
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			log.Info(burnstone.CPUInfo())
			burnstone.Preheat()

			engine := burnstone.NewEngine()
			engine.SetLogger(log)
			events, unsubscribe := engine.Events().Subscribe()
			defer unsubscribe()

			cfg := burnstone.RunConfig{
				Algorithm:    burnstone.Algorithm(algo),
				CycleSeconds: seconds,
			}
			if err := engine.StartAll(cfg); err != nil {
				return err
			}

			for ev := range events {
				if ev.LastError != "" {
					log.WithField("logical", ev.LogicalIndex).Warn(ev.LastError)
				} else {
					log.Info(ev.Status)
				}
				if !ev.Running {
					break
				}
			}

			if n := engine.ErrorCount(); n > 0 {
				log.WithField("errors", n).Error("instability detected")
				os.Exit(1)
			}
			log.Info("no computation errors detected")
			return nil
		},
	}

	root.Flags().StringVar(&algo, "algo", string(burnstone.DefaultAlgorithm), "algorithm key (see --list)")
	root.Flags().BoolVar(&list, "list", false, "print available algorithm keys and exit")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
