// Package email renders task reminder emails and submits them over SMTP.
//
// Rendering is a pure function of the task and the configuration. The full
// MIME message is composed in memory before the transport is touched, so a
// template or address error never results in a partially sent message.
package email
