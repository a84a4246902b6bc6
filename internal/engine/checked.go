//go:build checked

package engine

// checkedBuild turns caller contract violations into panics.
const checkedBuild = true
