// Package notify implements the due-task reminder pipeline.
//
// A Scanner periodically asks the task store for tasks due inside a sliding
// window around the current time and hands each one to the Orchestrator. The
// Orchestrator fans the reminder out to every push subscription of the owner
// and to the owner's email address, records one audit entry per channel
// attempt through the Auditor and finally retires the task with an atomic
// conditional update, so each task is reminded at most once until its due
// time changes.
//
// Delivery failures never escape a single send: a slow push service, a dead
// endpoint, an unresolvable address or a failing audit store only affect the
// attempt they belong to.
package notify
