// Package device provides the node inventory for Verdant Core.
//
// The inventory is the catalogue of every garden node known to an
// installation: pre-provisioned units awaiting registration and claimed
// units belonging to an owner. Devices are keyed by their normalised
// MAC address, burned in at manufacture and printed on the enclosure.
//
// # Key Types
//
//   - Device: a garden node, claimed or unclaimed
//   - Repository: persistence interface with a SQLite implementation
//   - Inventory: cached view over the repository with change notification
//
// The Repository runs over a DBTX, so the same queries execute against
// an open connection or inside the registration transaction. Claim() is
// a conditional update (owner_id IS NULL) so concurrent registrations
// of the same node resolve to exactly one winner.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	inv := device.NewInventory(repo)
//	inv.SetLogger(log)
//
//	if err := inv.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	unclaimed, err := inv.ListUnclaimed(ctx)
//
// Watchers subscribe to population changes via Inventory.Subscribe();
// the discovery package builds its live snapshots on top of it.
package device
