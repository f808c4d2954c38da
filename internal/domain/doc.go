// Package domain contains the core entities of the notification pipeline:
// tasks with their reminder lifecycle, push subscriptions and the
// append-only notification attempts written for every channel send.
// It is independent of any storage engine or delivery mechanism.
package domain
