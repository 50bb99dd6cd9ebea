// Package archives implements the retention sweep over remote video
// exports.
//
// The sweep is the purge engine specialized with an age predicate: a
// non-persistent archive is queued once it is older than the configured
// number of local calendar days (a limit of zero disables the age check
// and queues every non-persistent archive — an explicit override).
//
// Two optional steps surround deletion:
//
//   - Offload: download the export into an S3-compatible bucket first;
//     an archive that could not be saved is never deleted.
//   - Attribution: after the run, scan the vendor audit log for
//     "Devices Uninstalled" events within a bounded window and record the
//     acting user's email against each removal. A miss is informational,
//     never an error.
package archives
