// Package services contains the HTTP client for the remote transcription
// service and the shared error taxonomy used to classify its failures.
package services
