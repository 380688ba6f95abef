// Package shutdown coordinates graceful process termination.
//
// A Handler listens for SIGINT and SIGTERM, then runs registered
// cleanup hooks in reverse registration order under a deadline.
// Hooks that outlive the deadline are abandoned so the process can
// still exit.
package shutdown
