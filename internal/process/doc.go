// Package process provides the OS-facing primitives of the init loop.
//
// The package offers three pieces, none of which keep state between calls
// beyond what the caller hands back in:
//
// Reaper collects terminated children:
//   - One non-blocking wait4(-1, WNOHANG) per TryReap call
//   - Exit status or terminating signal classified as a Carcass
//   - Callers drain until nothing is left, SIGCHLD coalesces
//
// Tracker discovers the process tree from procfs:
//   - ChildrenOf lists direct children from the ppid field of /proc/<pid>/stat
//   - ScanNewChildren diffs the children of init against a previous snapshot
//   - Unreadable records are skipped with a warning
//
// Spawner starts commands without ever waiting on them:
//   - Arguments are split on whitespace, no quoting
//   - Output is inherited or captured line by line into a logger
//
// Example usage:
//
//	reaper := process.NewReaper(logger)
//	for {
//	    carcass, ok := reaper.TryReap()
//	    if !ok {
//	        break
//	    }
//	    log.Printf("reaped %s (%s)", carcass, carcass.Termination())
//	}
package process
