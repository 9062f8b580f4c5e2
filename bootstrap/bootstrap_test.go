package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/config"
	"github.com/kbukum/speakerid/logger"
)

type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	started  bool
	stopped  bool
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	m.started = true
	m.record("start:" + m.name)
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	m.record("stop:" + m.name)
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) component.Health {
	if m.health.Name == "" {
		return component.Health{Name: m.name, Status: component.StatusHealthy}
	}
	return m.health
}
func (m *mockComponent) Describe() component.Description {
	return component.Description{Name: m.name, Type: "mock", Details: "in-memory"}
}
func (m *mockComponent) Routes() []component.Route {
	return []component.Route{{Method: "GET", Path: "/api/v1/" + m.name, Handler: "Handler.List"}}
}

func (m *mockComponent) record(e string) {
	if m.events != nil {
		*m.events = append(*m.events, e)
	}
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func newTestApp(t *testing.T, out *bytes.Buffer) *App[*testConfig] {
	t.Helper()
	opts := []Option{WithLogger(logger.Nop()), WithGracefulTimeout(time.Second)}
	if out != nil {
		opts = append(opts, WithSummaryOutput(out))
	} else {
		opts = append(opts, WithoutSummary())
	}
	app, err := NewApp(newTestConfig("speakerid", "1.0.0"), opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t, nil)
	if app.Name != "speakerid" {
		t.Errorf("expected name 'speakerid', got %q", app.Name)
	}
	if app.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", app.Version)
	}
	if app.Components == nil || app.Logger == nil || app.Summary == nil {
		t.Fatal("expected registry, logger and summary to be set")
	}
	if app.gracefulTimeout != time.Second {
		t.Errorf("expected graceful timeout 1s, got %s", app.gracefulTimeout)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := newTestConfig("speakerid", "1.0.0")
	cfg.Environment = "moon"
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRunTask_Lifecycle(t *testing.T) {
	app := newTestApp(t, nil)
	var events []string
	db := &mockComponent{name: "database", events: &events}
	srv := &mockComponent{name: "http-server", events: &events}
	if err := app.RegisterComponent(db); err != nil {
		t.Fatal(err)
	}
	if err := app.RegisterComponent(srv); err != nil {
		t.Fatal(err)
	}

	app.OnStart(func(context.Context) error { events = append(events, "onStart"); return nil })
	app.OnConfigure(func(_ context.Context, a *App[*testConfig]) error {
		if a.Cfg.Name != "speakerid" {
			t.Errorf("expected typed config in configure, got %q", a.Cfg.Name)
		}
		events = append(events, "configure")
		return nil
	})
	app.OnReady(func(context.Context) error { events = append(events, "onReady"); return nil })
	app.OnStop(func(context.Context) error { events = append(events, "onStop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		events = append(events, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	want := []string{
		"start:database", "start:http-server", "onStart", "configure", "onReady",
		"task", "onStop", "stop:http-server", "stop:database",
	}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, events)
	}
}

func TestRunTask_TaskErrorWins(t *testing.T) {
	app := newTestApp(t, nil)
	comp := &mockComponent{name: "database", stopErr: errors.New("close failed")}
	_ = app.RegisterComponent(comp)

	boom := errors.New("boom")
	err := app.RunTask(context.Background(), func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected task error, got %v", err)
	}
	if !comp.stopped {
		t.Error("expected component to be stopped")
	}
}

func TestRunTask_StopErrorSurfaces(t *testing.T) {
	app := newTestApp(t, nil)
	_ = app.RegisterComponent(&mockComponent{name: "database", stopErr: errors.New("close failed")})

	err := app.RunTask(context.Background(), func(context.Context) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "close failed") {
		t.Errorf("expected stop error, got %v", err)
	}
}

func TestStartupFailure(t *testing.T) {
	t.Run("component start", func(t *testing.T) {
		app := newTestApp(t, nil)
		first := &mockComponent{name: "database"}
		_ = app.RegisterComponent(first)
		_ = app.RegisterComponent(&mockComponent{name: "redis", startErr: errors.New("refused")})

		ran := false
		err := app.RunTask(context.Background(), func(context.Context) error { ran = true; return nil })
		if err == nil {
			t.Fatal("expected startup error")
		}
		if ran {
			t.Error("expected task not to run")
		}
		if !first.stopped {
			t.Error("expected started component to be stopped again")
		}
	})

	t.Run("configure", func(t *testing.T) {
		app := newTestApp(t, nil)
		comp := &mockComponent{name: "database"}
		_ = app.RegisterComponent(comp)
		app.OnConfigure(func(context.Context, *App[*testConfig]) error { return errors.New("bad wiring") })

		err := app.RunTask(context.Background(), func(context.Context) error { return nil })
		if err == nil || !strings.Contains(err.Error(), "bad wiring") {
			t.Fatalf("expected configure error, got %v", err)
		}
		if !comp.stopped {
			t.Error("expected component to be stopped after configure failure")
		}
	})
}

func TestRun_ContextCancel(t *testing.T) {
	app := newTestApp(t, nil)
	comp := &mockComponent{name: "database"}
	_ = app.RegisterComponent(comp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	app.OnReady(func(context.Context) error {
		cancel()
		return nil
	})
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancel")
	}
	if !comp.stopped {
		t.Error("expected component to be stopped")
	}
}

func TestReadyCheck(t *testing.T) {
	app := newTestApp(t, nil)
	_ = app.RegisterComponent(&mockComponent{name: "database"})
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Errorf("expected ready, got %v", err)
	}

	_ = app.RegisterComponent(&mockComponent{
		name:   "redis",
		health: component.Health{Name: "redis", Status: component.StatusDegraded, Message: "ping failed"},
	})
	err := app.ReadyCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "redis=degraded(ping failed)") {
		t.Errorf("expected degraded redis in error, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(t, &out)
	_ = app.RegisterComponent(&mockComponent{name: "people"})

	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}

	text := out.String()
	for _, want := range []string{
		"speakerid 1.0.0 started",
		"people [mock]: in-memory",
		"Routes (1)",
		"/api/v1/people -> Handler.List",
		"Health (healthy)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, text)
		}
	}
}

func TestSummary_Quiet(t *testing.T) {
	var out bytes.Buffer
	app, err := NewApp(newTestConfig("speakerid", "1.0.0"),
		WithLogger(logger.Nop()), WithSummaryOutput(&out), WithoutSummary())
	if err != nil {
		t.Fatal(err)
	}
	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no summary output, got %q", out.String())
	}
}
