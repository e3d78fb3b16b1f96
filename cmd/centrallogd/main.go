package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"centrallog/pkg/config"
	"centrallog/pkg/engine"
	"centrallog/pkg/ingest"
	"centrallog/pkg/output"
)

var (
	configPath string
	workers    int
	sinkType   string
	sinkPath   string

	rootCmd = &cobra.Command{
		Use:   "centrallogd",
		Short: "centrallogd merges application logs into one ordered stream",
		Long: `centrallogd consumes log records from many producers, merges them into a
single time-ordered stream under a fixed memory budget, and delivers the
stream to a configurable sink. Records that cannot be admitted are demoted
to a bounded dead-letter buffer and trickled out when there is headroom.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of intake workers (overrides config)")
	rootCmd.Flags().StringVar(&sinkType, "sink", "", "sink type: file, console or http (overrides config)")
	rootCmd.Flags().StringVar(&sinkPath, "sink-path", "", "file sink path (overrides config)")
}

func run() error {
	log.Println("Initializing centrallogd...")

	// 1. Config
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if workers > 0 {
		cfg.Intake.Workers = workers
	}
	if sinkType != "" {
		cfg.Sink.Type = sinkType
	}
	if sinkPath != "" {
		cfg.Sink.Path = sinkPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 2. Sink
	sink, err := output.New(cfg.Sink)
	if err != nil {
		return fmt.Errorf("create sink: %w", err)
	}

	// 3. Bus: listeners feed one shared frame queue.
	queue := ingest.NewFrameQueue(4096)
	tcp := ingest.NewTCPListener(fmt.Sprintf(":%d", cfg.Server.TCPPort), queue)
	udp := ingest.NewUDPListener(fmt.Sprintf(":%d", cfg.Server.UDPPort), queue)

	// 4. Pipeline
	sup := engine.NewSupervisor(queue, sink, cfg.Intake, cfg.Buffers)

	// --- Start ---
	sup.Start()

	go func() {
		if err := tcp.Start(); err != nil {
			log.Fatalf("TCP listener died: %v", err)
		}
	}()
	go func() {
		if err := udp.Start(); err != nil {
			log.Fatalf("UDP listener died: %v", err)
		}
	}()

	// Wait for shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	log.Println("centrallogd running. Press Ctrl+C to stop.")

	<-sigChan
	log.Println("Shutting down...")

	// Stop producing first, then drain what is already queued.
	tcp.Stop()
	udp.Stop()
	time.Sleep(200 * time.Millisecond) // let in-flight connections land
	queue.Close()
	sup.Stop()

	if c, ok := sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("close sink: %v", err)
		}
	}
	if dropped := queue.Dropped(); dropped > 0 {
		log.Printf("bus dropped %d frames under load", dropped)
	}
	log.Println("Bye.")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
