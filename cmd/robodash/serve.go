package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"robodash/internal/admin"
	"robodash/internal/command"
	"robodash/internal/config"
	"robodash/internal/ingest"
	"robodash/internal/logging"
	"robodash/internal/sim"
	"robodash/internal/state"
	"robodash/internal/tui"
)

var (
	serveConfigPath string
	serveSchemaPath string
	servePort       int
	serveTimeout    float64
	serveSimulate   bool
	serveTUI        bool
	serveLogFile    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard core",
	Long:  "serve binds the UDP listener, tracks robot liveness, and exposes the admin API. With --simulate the built-in robot simulator feeds the same ingest path instead of the socket.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if serveConfigPath != "" {
			loaded, err := config.Load(serveConfigPath, serveSchemaPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		if cmd.Flags().Changed("timeout") {
			cfg.TimeoutSeconds = serveTimeout
		}
		if cmd.Flags().Changed("log-file") {
			cfg.Sinks.LogFile = serveLogFile
		}

		log := logging.New()
		var logPane *tui.LogWriter
		if serveTUI {
			// Route log output into the dashboard's log pane so it
			// does not corrupt the altscreen.
			logPane = tui.NewLogWriter()
			log = logging.NewWithLevel(logPane, slog.LevelInfo)
		}
		table := state.NewTable()

		writer, cleanup, err := newStatusWriter(cfg, log)
		if err != nil {
			return err
		}
		defer cleanup()

		var (
			source    ingest.PacketSource
			simulator *sim.Simulator
		)
		if serveSimulate {
			log.Warn("running in simulation mode with fake robot data")
			feed := sim.NewFeed()
			source = feed
			simulator = sim.NewSimulator(cfg.Simulator.Robots, cfg.Simulator.TeamID, feed, cfg.Tick(), log)
		} else {
			udp, err := ingest.ListenUDP(cfg.Port, time.Second)
			if err != nil {
				return err
			}
			source = udp
			log.Info("listening for robot telemetry", "port", cfg.Port)
		}

		receiver := ingest.NewReceiver(source, table, log, writer)
		sweeper := ingest.NewSweeper(table, cfg.Timeout(), log)

		dispatcher, err := command.NewUDP(table, log)
		if err != nil {
			return err
		}
		defer dispatcher.Close()

		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		recvErr := make(chan error, 1)
		go func() { recvErr <- receiver.Run(ctx) }()
		go sweeper.Run(ctx)
		if simulator != nil {
			go simulator.Run(ctx)
		}

		adminSrv := admin.NewServer(table, dispatcher, receiver, log)
		go func() {
			if err := adminSrv.Start(ctx, cfg.AdminAddr); err != nil {
				log.Error("admin server failed", "err", err)
			}
		}()

		if serveTUI {
			err := tui.Run(ctx, table, dispatcher, receiver, logPane)
			cancel()
			<-recvErr
			return err
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigs:
			cancel()
			return <-recvErr
		case err := <-recvErr:
			// Receiver died on its own: a transport failure, surfaced.
			cancel()
			return err
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to dashboard configuration YAML")
	serveCmd.Flags().StringVar(&serveSchemaPath, "schema", "schemas/robodash.cue", "Path to CUE schema file")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "UDP port to listen for robot data")
	serveCmd.Flags().Float64Var(&serveTimeout, "timeout", 5, "Robot timeout in seconds")
	serveCmd.Flags().BoolVar(&serveSimulate, "simulate", false, "Feed simulated robot data instead of binding the socket")
	serveCmd.Flags().BoolVar(&serveTUI, "tui", false, "Render the terminal dashboard")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Path to export received status rows (JSONL)")
}
