// Package platform simulates the machine underneath the process core: a
// physical page pool, user address spaces, the open file table, a logging
// file system, per-CPU interrupt flags, the tick clock and saved execution
// contexts.
package platform
