// Package aggregates holds the persistence-side helpers shared by repositories and
// services: transaction boundaries, compare-and-set guards, and translation of
// driver errors into domain error codes.
package aggregates
