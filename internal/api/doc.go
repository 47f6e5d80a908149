// Package api provides the HTTP client for the remote workboard service.
package api
