// Package harvest walks Integra portals and collects the detail payload of every person whose
// role matches the configured terms.
//
// The pipeline has four levels. The Scheduler runs Harvesters for groups of sources; each
// Harvester pages through the listing endpoint with a ListingWalker, keeps candidates accepted by
// the RoleFilter, and fetches their details in fixed-size concurrent batches with a DetailFanout.
// Every request goes through a per-source Client that owns retries. Failures never cross a
// component boundary as errors: they surface as absent results and counters in SourceStats.
package harvest
