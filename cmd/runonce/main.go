// Package main runs one pipeline operation and prints its result as JSON.
//
// Usage:
//
//	runonce -phase tick|swap|replenish|spawn [-fill] [service flags]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pokeball-ops/internal/app"
	"pokeball-ops/internal/config"
	"pokeball-ops/internal/spawn"
)

func main() {
	config.LoadEnvFile(".env")

	phase := flag.String("phase", "tick", "Operation to run: tick, swap, replenish, spawn")
	fill := flag.Bool("fill", false, "With -phase spawn, also fill empty slots map-wide")

	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration:\n%v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
		cancel()
	}()

	svc, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	var result any
	switch *phase {
	case "tick":
		err = svc.Coordinator.Tick(ctx)
		result = svc.Coordinator.Status()
	case "swap":
		result, err = svc.Coordinator.RunSwap(ctx)
	case "replenish":
		result, err = svc.Coordinator.RunReplenish(ctx)
	case "spawn":
		result, err = svc.Coordinator.RunSpawn(ctx, spawn.RunOptions{FillEmpty: *fill})
	default:
		fmt.Fprintf(os.Stderr, "Unknown phase %q\n", *phase)
		svc.Close()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		svc.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
