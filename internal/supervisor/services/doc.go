// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package services adapts server components to suture.Service.

HTTPServerService translates ListenAndServe and Shutdown into Serve:
cancellation drains in-flight requests and http.ErrServerClosed is
treated as a clean stop.

MaintenanceService schedules Jobs with robfig/cron. Jobs:

  - ValueLogGCJob: one badger value-log GC cycle
  - LedgerSnapshotJob: persists scorer spend and refreshes the budget
    gauges, also on shutdown

Each run is bounded by a timeout and recorded with metrics.RecordMaintenance.
*/
package services
