package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/osa911/datacap/internal/api/handlers"
	"github.com/osa911/datacap/internal/middleware"
)

// Config configures the control API listener
type Config struct {
	Addr        string
	RPS         int
	Burst       int
	ServiceName string
	Release     bool
}

// Dependencies are the components the control API exposes
type Dependencies struct {
	DB        handlers.Pinger
	Status    handlers.StatusSource
	Engine    handlers.EngineControl
	Commands  handlers.Commands
	Purchases handlers.Purchases
	Observer  middleware.RequestObserver
	Gatherer  prometheus.Gatherer
}
