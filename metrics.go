package main

import "sync/atomic"

// Metrics are process-lifetime counters exposed on the admin endpoint.
type Metrics struct {
	ConnectionsAccepted atomic.Int64
	ConnectionsRejected atomic.Int64
	PacketsIn           atomic.Int64
	PacketsDropped      atomic.Int64
	Broadcasts          atomic.Int64
	Detonations         atomic.Int64
	BlocksDestroyed     atomic.Int64
	ItemsSpawned        atomic.Int64
	ItemsPickedUp       atomic.Int64
	Ticks               atomic.Int64
}

// Snapshot returns a read-only copy for HTTP output.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"connections_accepted": m.ConnectionsAccepted.Load(),
		"connections_rejected": m.ConnectionsRejected.Load(),
		"packets_in":           m.PacketsIn.Load(),
		"packets_dropped":      m.PacketsDropped.Load(),
		"broadcasts":           m.Broadcasts.Load(),
		"detonations":          m.Detonations.Load(),
		"blocks_destroyed":     m.BlocksDestroyed.Load(),
		"items_spawned":        m.ItemsSpawned.Load(),
		"items_picked_up":      m.ItemsPickedUp.Load(),
		"ticks":                m.Ticks.Load(),
	}
}
