// Package updater orchestrates upgrading a fixed set of pip packages to
// their published versions and persists a structured run report.
//
// A run attempts the external installer script first when its path exists,
// falls back to direct pip invocations otherwise, reconciles observed
// versions against the published ones, retries mismatched packages through
// whichever path succeeded initially, and writes the report on every exit
// path. Failed runs still leave a partial report on disk for forensics.
package updater
