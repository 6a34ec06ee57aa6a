package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/myrjola/fitfocus/internal/e2etest"
	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/logging"
	"github.com/myrjola/fitfocus/internal/testhelpers"
)

// TestPages walks the pages a new device sees. It never creates a plan so that no LLM call is made.
func TestPages(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get home: %w", err)
	}
	if _, err = e2etest.FindForm(doc, "/plan"); err != nil {
		return fmt.Errorf("setup form: %w", err)
	}
	if doc, err = client.GetDoc(ctx, "/stats"); err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	if got := doc.Find("#total-logs").Text(); got != "0" {
		return errors.New("new device has history", slog.String("total_logs", got))
	}
	if _, err = client.GetDoc(ctx, "/data"); err != nil {
		return fmt.Errorf("get data: %w", err)
	}
	return nil
}

// TestChartData checks that the JSON endpoint answers for a new device.
func TestChartData(client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd // 5 seconds
	defer cancel()

	resp, err := client.Get(ctx, "/stats/chart-data")
	if err != nil {
		return fmt.Errorf("get chart data: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected status", slog.Int("status", resp.StatusCode))
	}
	var data map[string]json.RawMessage
	if err = json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Errorf("decode chart data: %w", err)
	}
	for _, key := range []string{"summary", "muscles", "timeline"} {
		if _, ok := data[key]; !ok {
			return errors.New("chart data key missing", slog.String("key", key))
		}
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestPages(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing pages", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestChartData(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing chart data", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
