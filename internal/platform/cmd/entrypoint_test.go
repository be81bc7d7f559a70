package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	Address string `env:"CMD_TEST_ADDRESS" envDefault:"127.0.0.1:8080"`
	Mode    string `env:"CMD_TEST_MODE" envDefault:"server"`
}

func TestParseConfigFromArgsReadsEnvThenFlags(t *testing.T) {
	t.Setenv("SITENAV_CMD_TEST_ADDRESS", "env:9000")
	t.Setenv("SITENAV_CMD_TEST_MODE", "env-mode")

	cfg := testConfig{}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Func("address", "address", func(v string) error { cfg.Address = v; return nil })
	if err := ParseConfigFromArgs(&cfg, fs, []string{"-address", "flag:9001"}); err != nil {
		t.Fatalf("ParseConfigFromArgs() error = %v", err)
	}
	if cfg.Address != "flag:9001" {
		t.Fatalf("address = %q, want flag value", cfg.Address)
	}
	if cfg.Mode != "env-mode" {
		t.Fatalf("mode = %q, want env value", cfg.Mode)
	}
}

func TestParseConfigFromArgsDefaults(t *testing.T) {
	cfg := testConfig{}
	if err := ParseConfigFromArgs(&cfg, flag.NewFlagSet("test", flag.ContinueOnError), nil); err != nil {
		t.Fatalf("ParseConfigFromArgs() error = %v", err)
	}
	if cfg.Address != "127.0.0.1:8080" || cfg.Mode != "server" {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestParseConfigFromArgsRejectsNilInputs(t *testing.T) {
	t.Parallel()

	if err := ParseConfigFromArgs[testConfig](nil, flag.NewFlagSet("t", flag.ContinueOnError), nil); err == nil {
		t.Fatal("expected nil config error")
	}
	if err := ParseConfigFromArgs(&testConfig{}, nil, nil); err == nil {
		t.Fatal("expected nil parser error")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	t.Parallel()

	if err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceSite, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryShutsDownAfterRun(t *testing.T) {
	t.Parallel()

	var order []string
	options := RunOptions{Setup: func(context.Context, string) (func(context.Context) error, error) {
		order = append(order, "setup")
		return func(context.Context) error {
			order = append(order, "shutdown")
			return errors.New("flush failed")
		}, nil
	}}
	runErr := errors.New("run failed")
	err := RunWithTelemetryAndOptions(context.Background(), ServiceSite, options, func(context.Context) error {
		order = append(order, "run")
		return runErr
	})
	if !errors.Is(err, runErr) {
		t.Fatalf("error = %v, want run error", err)
	}
	if len(order) != 3 || order[0] != "setup" || order[1] != "run" || order[2] != "shutdown" {
		t.Fatalf("order = %v", order)
	}
}

func TestRunWithTelemetrySetupError(t *testing.T) {
	t.Parallel()

	ran := false
	options := RunOptions{Setup: func(context.Context, string) (func(context.Context) error, error) {
		return nil, errors.New("no exporter")
	}}
	if err := RunWithTelemetryAndOptions(context.Background(), ServiceSite, options, func(context.Context) error {
		ran = true
		return nil
	}); err == nil {
		t.Fatal("expected setup error")
	}
	if ran {
		t.Fatal("run must not start when telemetry setup fails")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	t.Parallel()

	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}
