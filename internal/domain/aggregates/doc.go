// Package aggregates holds the error vocabulary shared by the scheduling services,
// repositories and the HTTP layer.
package aggregates
