// Package component defines the lifecycle contract shared by
// long-lived pieces of an application and a registry that starts,
// stops, and health-checks them in dependency order.
package component
