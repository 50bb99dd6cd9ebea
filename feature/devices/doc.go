// Package devices gathers the org's device inventory across every
// endpoint of the platform catalogue and feeds it to the purge engine.
//
// Gathering fans out one task per device type (guest hardware additionally
// iterates the site list, which is fetched first). Tasks are independent:
// a slow or failing type never blocks or crashes its siblings, and its
// error is carried in the GatherReport instead of aborting the run. A
// partial inventory is still usable for reconciliation, with a warning.
package devices
