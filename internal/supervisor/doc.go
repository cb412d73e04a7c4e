// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package supervisor provides process supervision for Ordersight using suture v4.

The tree has two layers so that a failure in one never restarts the other:

	RootSupervisor ("ordersight")
	├── ModelsSupervisor ("models-layer")
	│   ├── TrainingService
	│   └── cache sweepers
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with suture's backoff. Shutdown is driven by
context cancellation; UnstoppedServiceReport lists any service that did not
return within ShutdownTimeout.

Suture events are logged through sutureslog. The slog handler passed to
NewSupervisorTree is normally logging.NewSlogHandler, which forwards to the
process zerolog logger:

	tree, err := supervisor.NewSupervisorTree(slog.New(logging.NewSlogHandler()), supervisor.TreeConfig{})
	tree.AddModelService(services.NewTrainingService(reg, source, cfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))
	err = tree.Serve(ctx)
*/
package supervisor
