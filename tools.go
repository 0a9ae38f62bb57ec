//go:build tools

// Package arenachat pins the code generators used by go generate, so mockgen
// resolves to the version recorded in go.mod.
package arenachat

import (
	_ "go.uber.org/mock/mockgen"
)
