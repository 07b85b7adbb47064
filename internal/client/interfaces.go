package client

// Client is the minimal lifecycle contract for runnable client
// applications.
type Client interface {
	// Run starts the client and blocks until exit.
	Run() error
}
