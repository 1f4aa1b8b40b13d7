/*
Package metrics exposes unionmountd's Prometheus metrics: per-operation
counters and latency histograms, the notification bus's queued,
processed, and dropped counters, the open-slot limiter's occupancy
gauge, and the member count of each bounded path mask.

	collector, err := metrics.NewCollector(metrics.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}
	if err := collector.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer collector.Stop(context.Background())

	collector.RecordOperation("getattr", elapsed, success)
	collector.SetOpenHandles(openCount)
	collector.SetMaskMembers("syncing", syncingMask.Len())

A disabled Config (Enabled: false) turns every recording method into a
no-op and Start into nothing, so callers do not need to branch on
whether metrics are configured.
*/
package metrics
