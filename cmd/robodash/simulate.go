package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"robodash/internal/logging"
	"robodash/internal/sim"
)

var (
	simRobots int
	simTeamID int
	simTarget string
	simTick   time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the standalone robot simulator",
	Long:  "simulate sends fake robot status datagrams to a running dashboard, for development without real robots.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()

		sender, err := sim.NewUDPSender(simTarget)
		if err != nil {
			return err
		}
		defer sender.Close()

		simulator := sim.NewSimulator(simRobots, simTeamID, sender, simTick, log)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go simulator.Run(ctx)

		log.Info("simulator sending", "target", simTarget, "robots", simRobots)
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		cancel()
		log.Info("simulator stopped")
		return nil
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simRobots, "robots", 3, "Number of robots to simulate")
	simulateCmd.Flags().IntVar(&simTeamID, "team", 1, "Team ID reported by simulated robots")
	simulateCmd.Flags().StringVar(&simTarget, "target", "127.0.0.1:8080", "Dashboard address to send datagrams to")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 100*time.Millisecond, "Send interval (e.g. 100ms)")
}
