package internal

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"go.eggybyte.com/carddesk/core/log"
)

type recordingService struct {
	startErr error
	started  bool
	stopped  bool
}

func (s *recordingService) Start(context.Context) error {
	s.started = true
	return s.startErr
}

func (s *recordingService) Stop(context.Context) error {
	s.stopped = true
	return nil
}

func TestRuntime_ServesAndStops(t *testing.T) {
	svc := &recordingService{}
	rt := NewRuntime(log.Nop(), []Service{svc}, time.Second)
	rt.AddServer("http", &http.Server{
		Addr: "127.0.0.1:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "hello")
		}),
	})

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !svc.started {
		t.Error("Service should have been started")
	}

	addr := rt.Addr("http")
	if addr == "" {
		t.Fatal("Addr() should report the bound address")
	}
	resp, err := http.Get("http://" + addr)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "hello" {
		t.Errorf("Expected body %q, got %q", "hello", body)
	}

	if err := rt.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !svc.stopped {
		t.Error("Service should have been stopped")
	}
	if _, err := http.Get("http://" + addr); err == nil {
		t.Error("Server should not accept requests after Stop")
	}
}

func TestRuntime_ServiceStartFailure(t *testing.T) {
	rt := NewRuntime(log.Nop(), []Service{&recordingService{startErr: errors.New("boom")}}, time.Second)
	rt.AddServer("http", &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()})

	if err := rt.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail when a service fails")
	}
	if rt.Addr("http") != "" {
		t.Error("No server should be bound after a service failure")
	}
}

func TestRuntime_ListenFailureReleasesListeners(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	rt := NewRuntime(log.Nop(), nil, time.Second)
	rt.AddServer("first", &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()})
	rt.AddServer("second", &http.Server{Addr: busy.Addr().String(), Handler: http.NotFoundHandler()})

	if err := rt.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail when an address is in use")
	}
	if rt.Addr("first") != "" {
		t.Error("Listeners opened before the failure should be released")
	}
}
