// Package serviceiface is the lifecycle shared by the long-lived parts of a
// command run, the logger and the warehouse connection.
package serviceiface

// Service is started once per run and stopped in reverse start order.
type Service interface {
	Name() string
	Start() error
	Stop() error
}
