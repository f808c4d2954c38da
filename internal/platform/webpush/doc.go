// Package webpush delivers task reminders to browser push subscriptions
// using the Web Push protocol with VAPID authentication.
//
// Every send returns a Result classified from the push service's response:
// Delivered for any 2xx status, Gone for 404 or 410 (the subscription is
// removed from the store and never retried) and Transient for everything
// else, including network errors and timeouts, leaving the subscription
// in place for the next due task.
package webpush
