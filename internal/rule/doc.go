// Package rule compiles declarative rule specs into live event
// signals.
//
// A rule binds a boolean condition tree over named primitives (and
// reusable compositions of them) to an entity pair, and publishes a
// snapshot of selected measurement and feature streams whenever its
// trigger mode fires. The compiled signal is shared and reference
// counted; disposing a rule releases every primitive reference its
// compilation acquired.
package rule
