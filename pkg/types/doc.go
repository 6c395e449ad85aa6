// Package types defines the logbook entities, the slot backend interfaces,
// configuration and the standard errors shared by every logbook package.
package types
