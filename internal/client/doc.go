// Package client assembles the notevault client runtime: configuration,
// local storage, the session key vault, the server adapter and the service
// layer, plus the terminal prompts used for setup and unlock.
package client
