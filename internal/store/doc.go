// Package store defines interfaces for data persistence operations.
// These interfaces abstract the task, subscription, identity and audit
// collaborators from the delivery pipeline, allowing the scanner and
// orchestrator to remain independent of specific database technologies.
package store
