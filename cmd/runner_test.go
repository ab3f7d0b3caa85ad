package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/subwatch/internal/services"
	"github.com/desertthunder/subwatch/internal/shared"
	tu "github.com/desertthunder/subwatch/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			api := services.NewAPIService("http://127.0.0.1:6767", "key", httpClient)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				API:        api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil API builds one from config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{API: nil})

			if runner.api == nil {
				t.Error("expected an API service to be constructed")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON when not pretty", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), `{"key":"value"}`) {
				t.Errorf("expected compact JSON, got %s", output.String())
			}
		})

		t.Run("surfaces writer errors", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected a write error")
			}
		})

		t.Run("surfaces marshal errors", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Error("expected a marshal error")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes formatted text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("jobs: %d\n", 3); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "jobs: 3\n" {
				t.Errorf("unexpected output: %q", output.String())
			}
		})

		t.Run("surfaces writer errors", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("text"); err == nil {
				t.Error("expected a write error")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) != 4 {
			t.Fatalf("expected 4 top-level commands, got %d", len(commands))
		}

		names := map[string]bool{}
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "watch", "jobs", "api"} {
			if !names[want] {
				t.Errorf("missing command %q", want)
			}
		}
	})
}

func TestRunner_JobsList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"job_id": 4, "job_name": "Sync Episodes", "status": "running", "progress_value": 2, "progress_max": 8}]}`))
	}))
	defer server.Close()

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		API:    services.NewAPIService(server.URL, "key", nil),
		Output: output,
	})

	app := jobsCommand(runner)
	if err := app.Run(context.Background(), []string{"jobs", "list"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := output.String()
	if !strings.Contains(result, "Sync Episodes") || !strings.Contains(result, "running") {
		t.Errorf("unexpected output: %q", result)
	}
}

func TestRunner_APIHealth(t *testing.T) {
	t.Run("reachable backend", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": {}}`))
		}))
		defer server.Close()

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			API:    services.NewAPIService(server.URL, "key", nil),
			Output: output,
		})

		if err := runner.APIHealth(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "backend reachable") {
			t.Errorf("unexpected output: %q", output.String())
		}
	})

	t.Run("unreachable backend", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			API:    services.NewAPIService("http://127.0.0.1:1", "key", nil),
			Output: &bytes.Buffer{},
		})

		if err := runner.APIHealth(context.Background(), nil); err == nil {
			t.Error("expected an error")
		}
	})
}
