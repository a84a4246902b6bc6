//go:build !checked

package engine

const checkedBuild = false
