// Package input turns submitted text or CSV uploads into an ordered
// name-to-address mapping.
package input
