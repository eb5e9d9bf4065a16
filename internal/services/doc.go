// Package services defines the shared error taxonomy for stage collaborators
// and hosts the adapter subpackages that talk to external tools and APIs.
package services
