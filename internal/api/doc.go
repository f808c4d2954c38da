// Package api exposes the operator HTTP surface of the notification service:
// a health probe, a manual scan trigger, a test email sender, the audit
// trail of a task and a transactional reschedule that re-arms a reminder.
// It never leaks internal error details to clients.
package api
