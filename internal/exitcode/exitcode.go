// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown list or task,
	// rejected input, an operation already in flight).
	UserError = 1

	// AuthError indicates nobody is signed in or the credentials were
	// rejected.
	AuthError = 2

	// BackendError indicates the remote service failed. Local state has
	// been rolled back.
	BackendError = 3

	// ServerError indicates `serve` could not start or stopped abnormally.
	ServerError = 4
)
