package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/clock"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/config"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/greenhouse"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/services/persistence"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/services/server"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/services/telemetry"
	"github.com/LeonardoBeccarini/greenhouse_project/pkg/cipher"
	"github.com/LeonardoBeccarini/greenhouse_project/pkg/rabbitmq"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "greenhouse-server",
		Short: "Greenhouse simulation server",
	}
	rootCmd.PersistentFlags().String("config", "", "YAML config file (default $GREENHOUSE_CONFIG)")
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation and accept protocol clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr, _ = cmd.Flags().GetString("addr")
			}
			if cmd.Flags().Changed("tick") {
				cfg.TickUnit, _ = cmd.Flags().GetDuration("tick")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", "", "TCP listen address for protocol clients")
	cmd.Flags().Duration("tick", 0, "base clock tick unit")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	codec, err := cipher.FromKey(cfg.CipherKey)
	if err != nil {
		return err
	}

	clk := clock.New(cfg.TickUnit)
	var opts []greenhouse.Option
	if cfg.Seed != 0 {
		opts = append(opts, greenhouse.WithRandSource(greenhouse.SeededSource(cfg.Seed)))
	}
	soil := greenhouse.NewSoilSeeder().Seed(ctx, cfg.Soil.Lat, cfg.Soil.Lon)
	opts = append(opts, greenhouse.WithSoil(soil))
	reg := greenhouse.NewRegistry(clk, opts...)
	defer reg.Close()

	store := persistence.NewFileStore(cfg.SnapshotDir)
	snaps, err := store.LoadAll()
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		gh, err := greenhouse.Restore(snap, opts...)
		if err == nil {
			err = reg.Add(gh)
		}
		if err != nil {
			log.Printf("server: skip snapshot %d: %v", snap.ID, err)
		}
	}
	log.Printf("server: restored %d greenhouses from %s", reg.Len(), cfg.SnapshotDir)

	grpcSrv, health := server.NewHealthServer()
	go func() {
		if err := server.ServeHealth(grpcSrv, cfg.GRPCAddr); err != nil {
			log.Printf("server: grpc health stopped: %v", err)
		}
	}()
	defer grpcSrv.GracefulStop()

	srv := server.New(clk, reg,
		server.WithCodec(codec),
		server.WithSaver(store),
		server.WithHealth(health),
	)

	deps := persistence.HTTPDeps{
		Greenhouses: reg.List,
		Lookup:      reg.Get,
		MinErrorAge: 30 * time.Second,
	}

	if cfg.Influx.Enabled {
		influx := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
		defer influx.Close()
		sink := persistence.NewSink(influx.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket), cfg.Influx.Measurement, reg.List)
		defer sink.Flush()
		clk.Subscribe(sink)
		deps.Sink = sink
		log.Printf("server: influx sink writing to %s/%s", cfg.Influx.URL, cfg.Influx.Bucket)
	}

	if cfg.MQTT.Enabled {
		mq, err := rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
			Host:     cfg.MQTT.Host,
			Port:     cfg.MQTT.Port,
			User:     cfg.MQTT.User,
			Password: cfg.MQTT.Password,
			ClientID: cfg.MQTT.ClientID,
		})
		if err != nil {
			log.Printf("server: mqtt disabled: %v", err)
		} else {
			tel := telemetry.NewService(
				rabbitmq.NewPublisher(mq),
				rabbitmq.NewConsumer(mq, cfg.MQTT.CommandTopic, nil),
				reg.List, reg.Get,
				telemetry.Config{ReadingsTopic: cfg.MQTT.ReadingsTopic, ResultTopic: cfg.MQTT.ResultTopic},
			)
			clk.Subscribe(tel)
			deps.MQTT = mq
			go func() {
				if err := tel.Start(ctx); err != nil {
					log.Printf("server: telemetry stopped: %v", err)
				}
			}()
		}
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           persistence.NewHTTPMux(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("server: http listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server: http error: %v", err)
		}
	}()

	clk.Start()
	defer clk.Stop()

	serveErr := srv.ListenAndServe(ctx, cfg.Addr)

	if n, err := srv.SaveState(); err != nil {
		log.Printf("server: final save failed: %v", err)
	} else {
		log.Printf("server: final save wrote %d greenhouses", n)
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)
	log.Println("server: shutdown complete")
	return serveErr
}
