// Package supervisor runs the long-lived services of the journal server
// under a suture supervision tree.
//
//	root ("travel-journal")
//	├── data-layer:    store writer
//	├── runtime-layer: scheduler, stream hub
//	└── api-layer:     HTTP server
//
// A failing service is restarted with backoff without touching its siblings.
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/jengzang/travel-journal-go/internal/logging"
)

// TreeConfig holds the restart policy shared by every supervisor in the tree
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultTreeConfig returns the stock restart policy
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the root supervisor and its layers
type Tree struct {
	root    *suture.Supervisor
	data    *suture.Supervisor
	runtime *suture.Supervisor
	api     *suture.Supervisor
	config  TreeConfig
}

// NewTree builds the supervisor hierarchy. Zero config values take defaults.
func NewTree(config TreeConfig) *Tree {
	defaults := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = defaults.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = defaults.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	newSpec := func(hook suture.EventHook) suture.Spec {
		return suture.Spec{
			EventHook:        hook,
			FailureThreshold: config.FailureThreshold,
			FailureDecay:     config.FailureDecay,
			FailureBackoff:   config.FailureBackoff,
			Timeout:          config.ShutdownTimeout,
		}
	}

	root := suture.New("travel-journal", newSpec(logEvent))
	data := suture.New("data-layer", newSpec(nil))
	runtime := suture.New("runtime-layer", newSpec(nil))
	api := suture.New("api-layer", newSpec(nil))

	root.Add(data)
	root.Add(runtime)
	root.Add(api)

	return &Tree{root: root, data: data, runtime: runtime, api: api, config: config}
}

// logEvent reports supervisor events through the journal logger
func logEvent(e suture.Event) {
	event := logging.Warn()
	switch e.Type() {
	case suture.EventTypeServicePanic:
		event = logging.Error()
	case suture.EventTypeResume:
		event = logging.Info()
	}
	event.Fields(e.Map()).Msg(e.String())
}

// AddDataService adds a persistence service
func (t *Tree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.Add(svc)
}

// AddRuntimeService adds a background runtime service
func (t *Tree) AddRuntimeService(svc suture.Service) suture.ServiceToken {
	return t.runtime.Add(svc)
}

// AddAPIService adds an externally facing service
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is done
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree on its own goroutine
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that ignored shutdown
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
