package models

import (
	"slices"
	"time"
)

// MaintenanceWindow represents a single maintenance announcement from the registry.
// This is an internal representation, independent of the registry's wire format.
type MaintenanceWindow struct {
	Systems     []string  // Affected system identifiers (e.g., "epp.nic.ch")
	Environment string    // Environment the window applies to (e.g., "production")
	FromTime    time.Time // Start of the window, UTC
	ToTime      time.Time // End of the window, UTC
	Reason      string    // Free-text reason given by the registry
	Remark      string    // Optional additional remark, empty if none
}

// Affects reports whether the window covers the given system identifier.
func (w MaintenanceWindow) Affects(system string) bool {
	return slices.Contains(w.Systems, system)
}
