// Package common holds the error taxonomy and path helpers shared by the
// scanner, the resource builder and the history resolver.
package common
