package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provstore/provstore_sdk_go/internal/devseed"
	"github.com/provstore/provstore_sdk_go/internal/sandbox"
	"github.com/provstore/provstore_sdk_go/pkg/provstore/mock"
)

type failConfig struct {
	rate float64
	code int
}

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	seedPath := flag.String("seed", "", "path to YAML seed for the document store")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	auth := flag.String("auth", "", "accepted credentials (user=key,...); empty accepts anyone")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	level := hclog.Info
	if *verbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{Name: "provstore-sandbox", Level: level})

	if err := run(logger, *addr, *seedPath, *latency, *fail, *auth); err != nil {
		logger.Error("sandbox failed", "error", err)
		os.Exit(1)
	}
}

func run(logger hclog.Logger, addr, seedPath string, latency time.Duration, fail, auth string) error {
	store := mock.New()
	if seedPath != "" {
		seed, err := devseed.Load(seedPath)
		if err != nil {
			return err
		}
		if err := store.Seed(seed); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		logger.Info("seed applied", "documents", len(seed.Documents))
	}

	failCfg, err := parseFailConfig(fail)
	if err != nil {
		return fmt.Errorf("parse fail flag: %w", err)
	}
	creds, err := parseCredentials(auth)
	if err != nil {
		return fmt.Errorf("parse auth flag: %w", err)
	}

	server := &http.Server{
		Addr: addr,
		Handler: sandbox.New(store, sandbox.Options{
			Latency:     latency,
			FailRate:    failCfg.rate,
			FailCode:    failCfg.code,
			Credentials: creds,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	logger.Info("listening", "addr", addr)
	fmt.Println()
	fmt.Println("export PROVSTORE_RUNTIME_MODE=http")
	fmt.Printf("export PROVSTORE_API_URL=http://%s%s\n", host, sandbox.APIPrefix)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(key) {
		case "rate":
			rate, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return failConfig{}, err
			}
			if rate < 0 || rate > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v outside [0,1]", rate)
			}
			cfg.rate = rate
		case "code":
			code, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = code
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}

func parseCredentials(raw string) (map[string]string, error) {
	creds := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		user, key, ok := strings.Cut(part, "=")
		if !ok || user == "" || key == "" {
			return nil, fmt.Errorf("invalid credential %q", part)
		}
		creds[user] = key
	}
	return creds, nil
}
