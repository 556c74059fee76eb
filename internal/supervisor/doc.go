// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package supervisor runs the server's long-lived services under suture v4.

	RootSupervisor ("momentum")
	├── DataSupervisor ("data-layer")
	│   └── MaintenanceService (badger value-log GC, ledger snapshots)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with suture's backoff. Supervisor events are
logged through sutureslog into the zerolog pipeline:

	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewMaintenanceService(jobs...))
	tree.AddAPIService(services.NewHTTPServerService(srv, addr, cfg.Server.ShutdownTimeout))
	err := tree.Serve(ctx)

Canceling ctx stops the api layer and the data layer, each within
ShutdownTimeout. Jobs marked OnStop run once more during shutdown.

See package services for the service wrappers.
*/
package supervisor
