package anyadv

import "fmt"

// A ConfigError describes a hyperparameter that violates
// its domain at construction or reconfiguration time.
type ConfigError struct {
	// Param is the name of the offending parameter.
	Param string

	// Reason describes the violated constraint.
	Reason string
}

// Error generates a human-readable message.
func (c *ConfigError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", c.Param, c.Reason)
}

// A CapabilityError indicates that a Classifier lacks a
// capability required by an attack or defence.
type CapabilityError struct {
	// Capability names the missing capability.
	Capability string
}

// Error generates a human-readable message.
func (c *CapabilityError) Error() string {
	return "classifier does not support " + c.Capability
}
