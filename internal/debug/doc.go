// Package debug implements the execution-control core of the nanobasic
// debugger: the validated execution state machine, the breakpoint
// registry with conditional and hit-count semantics, the call frame
// chain used for variable inspection, and the execution controller that
// makes the non-suspendable tree-walking interpreter resumable.
//
// The interpreter cannot suspend mid-evaluation, so "pausing" is
// cooperative: the controller's Before check runs ahead of every
// statement, and when it decides to pause it simply records the
// location, flips the state machine to Paused, and lets the driver loop
// return to its caller without advancing the statement cursor. Resuming
// re-enters the same loop at the persisted cursor; a one-shot
// skip-next-pause flag lets execution escape the breakpoint that caused
// the pause without re-triggering it.
//
// All components are explicitly constructed and injected; there is no
// package-level shared instance, so independent sessions and tests never
// cross-contaminate.
package debug
