package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"centrallog/pkg/config"
	"centrallog/pkg/control"
)

var (
	appID        int
	appFilters   []string
	appAppenders []string

	appConfigCmd = &cobra.Command{
		Use:   "appconfig",
		Short: "Read or edit per-application logging preferences",
	}

	appConfigGetCmd = &cobra.Command{
		Use:   "get",
		Short: "Print an application's filters and appenders",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			cfg, ok, err := store.Get(ctx, appID)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("no configuration for app_%d\n", appID)
				return nil
			}
			fmt.Printf("app_%d\n  filters:   %v\n  appenders: %v\n", appID, cfg.Filters, cfg.Appenders)
			return nil
		},
	}

	appConfigSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Replace an application's filters and appenders",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err = store.Update(ctx, appID, control.AppConfig{
				Filters:   appFilters,
				Appenders: appAppenders,
			})
			if err != nil {
				return err
			}
			log.Printf("updated app_%d", appID)
			return nil
		},
	}

	appConfigWatchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Stream configuration change signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			for key := range store.Watch(ctx) {
				fmt.Println(key)
			}
			return nil
		},
	}
)

func openStore() (*control.Store, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	return control.NewStore(cfg.Redis), nil
}

func init() {
	appConfigCmd.PersistentFlags().IntVar(&appID, "app", 0, "application id")
	appConfigSetCmd.Flags().StringSliceVar(&appFilters, "filter", nil, "level filters to store")
	appConfigSetCmd.Flags().StringSliceVar(&appAppenders, "appender", nil, "appenders to store")

	appConfigCmd.AddCommand(appConfigGetCmd, appConfigSetCmd, appConfigWatchCmd)
	rootCmd.AddCommand(appConfigCmd)
}
