// Package provider holds the build-time-embedded catalog of auxiliary
// modules a guest may import, and the classification rules that decide
// whether a given import name names a memory-I/O provider. Grounded on
// original_source/src/io.rs's StandardProviders + is_mem_io_provider, and
// on the teacher's wasm/embed.go for the embedding pattern itself.
package provider

import (
	"embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed providers/*.wasm
var standardProviders embed.FS

// Lookup returns the embedded module bytes for the provider import name
// (e.g. "shopify_function_v2"), or false if no provider by that name is
// registered. Lookup is only called during ValidatedModule construction,
// once per imported module name until one matches.
func Lookup(name string) ([]byte, bool) {
	data, err := standardProviders.ReadFile("providers/" + name + ".wasm")
	if err != nil {
		return nil, false
	}
	return data, true
}

// IsMemIOProvider reports whether an import module name identifies a
// provider that exchanges I/O through shared linear memory rather than
// WASI streams, per spec.md §4.D and §6's provider import-name format.
// Ported line-for-line from io.rs's is_mem_io_provider.
func IsMemIOProvider(name string) bool {
	if v, ok := versionSuffix(name, "shopify_functions_javy_v"); ok && v >= 3 {
		return true
	}
	if v, ok := versionSuffix(name, "shopify_function_v"); ok && v >= 2 {
		return true
	}
	return false
}

func versionSuffix(name, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// WASISystemInterfaceModule is the WASI preview1 import module name a
// module's imports are checked against to detect a system-interface
// dependency, per spec.md §4.D.
const WASISystemInterfaceModule = "wasi_snapshot_preview1"

// Error is returned when a provider referenced by a module's imports
// cannot be found in the registry — an internal error, since providers
// are controlled (spec.md §7 kind 5).
type Error struct {
	Name string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider: no registered provider named %q", e.Name)
}
