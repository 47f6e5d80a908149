package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Runtime is the host surface the lifecycle manager drives. It is an
// interface so tests can script arbitrary install sequences and so hosts
// without a companion agent can pass nil.
type Runtime interface {
	// Register installs the agent and reports what is installed and what,
	// if anything, was already controlling cached assets.
	Register(ctx context.Context) (Registration, error)
	// Updates emits installs that appear after registration. May return nil
	// when the runtime cannot observe later installs.
	Updates() <-chan Install
	// Activate promotes the identified install to controller.
	Activate(ctx context.Context, id uuid.UUID) error
	// PurgeAssets drops the controlling agent's asset store.
	PurgeAssets(ctx context.Context) error
}

const (
	socketRequestTimeout = 5 * time.Second
	updatePollInterval   = 30 * time.Second
)

// SocketRuntime drives a companion cache agent over its unix socket.
type SocketRuntime struct {
	http    *http.Client
	updates chan Install
	poll    time.Duration
}

var _ Runtime = (*SocketRuntime)(nil)

// NewSocketRuntime returns a runtime bound to the agent socket path.
func NewSocketRuntime(socketPath string) *SocketRuntime {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}
	return &SocketRuntime{
		http: &http.Client{
			Transport: transport,
			Timeout:   socketRequestTimeout,
		},
		updates: make(chan Install, 1),
		poll:    updatePollInterval,
	}
}

type wireInstall struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

type wireRegistration struct {
	Installed  wireInstall  `json:"installed"`
	Controller *wireInstall `json:"controller"`
}

func (w wireInstall) install() (Install, error) {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return Install{}, fmt.Errorf("parse install id %q: %w", w.ID, err)
	}
	return Install{ID: id, Version: w.Version}, nil
}

// Register implements Runtime. It also starts the update poll loop, which
// runs until ctx is cancelled.
func (r *SocketRuntime) Register(ctx context.Context) (Registration, error) {
	var payload wireRegistration
	if err := r.do(ctx, http.MethodPost, "/agent/register", nil, &payload); err != nil {
		return Registration{}, err
	}

	installed, err := payload.Installed.install()
	if err != nil {
		return Registration{}, err
	}
	reg := Registration{Installed: installed}
	if payload.Controller != nil {
		controller, err := payload.Controller.install()
		if err != nil {
			return Registration{}, err
		}
		reg.Controller = &controller
	}

	go r.pollUpdates(ctx, installed)
	return reg, nil
}

// Updates implements Runtime.
func (r *SocketRuntime) Updates() <-chan Install { return r.updates }

// pollUpdates watches the agent's installed version and emits it when it
// changes from what registration reported.
func (r *SocketRuntime) pollUpdates(ctx context.Context, last Install) {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var payload wireInstall
		if err := r.do(ctx, http.MethodGet, "/agent/installed", nil, &payload); err != nil {
			continue
		}
		install, err := payload.install()
		if err != nil {
			continue
		}
		if install.ID == last.ID {
			continue
		}
		last = install
		select {
		case r.updates <- install:
		case <-ctx.Done():
			return
		}
	}
}

// Activate implements Runtime.
func (r *SocketRuntime) Activate(ctx context.Context, id uuid.UUID) error {
	body := map[string]string{"id": id.String()}
	return r.do(ctx, http.MethodPost, "/agent/activate", body, nil)
}

// PurgeAssets implements Runtime.
func (r *SocketRuntime) PurgeAssets(ctx context.Context) error {
	return r.do(ctx, http.MethodPost, "/agent/purge", nil, nil)
}

func (r *SocketRuntime) do(ctx context.Context, method, path string, body, dest any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	// Host is a placeholder; the transport dials the unix socket.
	req, err := http.NewRequestWithContext(ctx, method, "http://agent"+path, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("agent %s returned status %d", path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
