package main

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func Test_application_healthy(t *testing.T) {
	server, _ := startTestServer(t, planResponder(t, ""))
	resp, err := server.Client().Get(t.Context(), "/api/healthy")
	if err != nil {
		t.Fatalf("Failed to get health: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != `{"status":"ok"}` {
		t.Errorf("Unexpected health response %d %s", resp.StatusCode, body)
	}
}

func Test_application_metrics(t *testing.T) {
	ctx := t.Context()
	server, _ := startTestServer(t, planResponder(t, ""))
	client := server.Client()

	createPlan(t, client)
	logSets(t, client, "60")

	resp, err := client.Get(ctx, "/metrics")
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics: %v", err)
	}
	for _, want := range []string{
		"fitfocus_web_plans_created_total 1",
		"fitfocus_web_log_entries_total 1",
		`fitfocus_web_llm_calls_total{adapter="plan",outcome="success"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected metrics to contain %q", want)
		}
	}
}

func Test_application_static(t *testing.T) {
	server, _ := startTestServer(t, planResponder(t, ""))
	resp, err := server.Client().Get(t.Context(), "/main.css")
	if err != nil {
		t.Fatalf("Failed to get stylesheet: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Cache-Control"); !strings.Contains(got, "immutable") {
		t.Errorf("Expected static assets to be cached, got %q", got)
	}
}
