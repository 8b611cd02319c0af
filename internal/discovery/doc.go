// Package discovery streams the live list of unclaimed devices.
//
// A Watcher subscribes to the device inventory and emits a fresh
// snapshot whenever the unclaimed set changes, so API consumers can
// show field technicians which nodes are waiting to be registered
// without polling.
package discovery
