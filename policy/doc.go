// Package policy provides the CPU scheduling policies a process table can
// run with: round-robin, first-come-first-served, priority based (PBS) and a
// multi-level feedback queue (MLFQ). A policy is chosen by name through
// Config, the same way from code or from YAML.
package policy
