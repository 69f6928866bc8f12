// Command venuesim runs the simulated trading venue on its own, for the
// end-to-end suite and for pointing a local trader at.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/venuesim"
	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/aussiebroadwan/tradelink/pkg/slogx"
	"github.com/shopspring/decimal"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("venuesim: %v", err)
	}
}

func run() error {
	logger := slogx.New(slogx.Config{
		Service: "venuesim",
		Env:     getEnvOrDefault("ENV", "dev"),
		Level:   getEnvOrDefault("LOG_LEVEL", "info"),
		Format:  getEnvOrDefault("LOG_FORMAT", "json"),
	})

	cfg := venuesim.DefaultConfig()
	cfg.Logger = logger
	cfg.Issuer = getEnvOrDefault("VENUESIM_ISSUER", cfg.Issuer)
	cfg.ClientID = getEnvOrDefault("VENUESIM_CLIENT_ID", cfg.ClientID)
	cfg.ClientSecret = getEnvOrDefault("VENUESIM_CLIENT_SECRET", cfg.ClientSecret)
	cfg.Username = getEnvOrDefault("VENUESIM_USERNAME", cfg.Username)
	cfg.Password = getEnvOrDefault("VENUESIM_PASSWORD", cfg.Password)
	cfg.MFASecret = os.Getenv("VENUESIM_MFA_SECRET")
	cfg.APIKey = getEnvOrDefault("VENUESIM_API_KEY", cfg.APIKey)
	cfg.APISecret = getEnvOrDefault("VENUESIM_API_SECRET", cfg.APISecret)
	cfg.AutoFill, _ = strconv.ParseBool(os.Getenv("VENUESIM_AUTO_FILL"))
	if aud := os.Getenv("VENUESIM_AUDIENCE"); aud != "" {
		cfg.Audience = strings.Split(aud, ",")
	}

	balances, err := parseBalances(os.Getenv("VENUESIM_OPENING_BALANCES"))
	if err != nil {
		return err
	}
	cfg.OpeningBalances = balances

	v, err := venuesim.New(cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + getEnvOrDefault("PORT", "8080"),
		Handler:           v.Handler(),
		ReadHeaderTimeout: 3 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("venuesim listening", "addr", server.Addr, "issuer", cfg.Issuer, "auto_fill", cfg.AutoFill)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	v.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// parseBalances reads "USD:100000,AUD:2500" into cash-only balances.
func parseBalances(raw string) (map[string]wire.BalanceEntry, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	out := make(map[string]wire.BalanceEntry)
	for _, part := range strings.Split(raw, ",") {
		ccy, amount, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("opening balance %q: want CCY:AMOUNT", part)
		}
		cash, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("opening balance %q: %w", part, err)
		}
		out[strings.ToUpper(ccy)] = wire.BalanceEntry{
			AvailableCash: cash,
			BuyingPower:   cash,
			Equity:        cash,
		}
	}
	return out, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
