// Package module wraps a compiled guest WebAssembly module with the
// import-classification invariant described in spec.md §4.D: a
// memory-I/O provider may never coexist with a system-interface (WASI)
// import. Grounded directly on
// original_source/src/validated_module.rs's ValidatedModule::new.
package module

import (
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/wasmharness/function-runner/provider"
)

// Validated wraps a compiled module together with its resolved provider
// (if any) and whether it depends on the system interface.
type Validated struct {
	Compiled  wazero.CompiledModule
	imports   []string // deduplicated, first-seen order
	usesWASI  bool
	stdImport *Provider
}

// Provider is the single auxiliary module resolved from a guest's
// imports, if any.
type Provider struct {
	Name  string
	Bytes []byte
}

// IsMemIOProvider reports whether this provider exchanges I/O through
// shared linear memory.
func (p *Provider) IsMemIOProvider() bool {
	return provider.IsMemIOProvider(p.Name)
}

// New validates a compiled module's import set and resolves its
// standard-provider dependency, if any. It is the sole place a
// provider-registry lookup happens for a given run (spec.md §4.E).
func New(compiled wazero.CompiledModule) (*Validated, error) {
	imports := dedupedImportModules(compiled)
	usesWASI := contains(imports, provider.WASISystemInterfaceModule)

	var std *Provider
	for _, name := range imports {
		if data, ok := provider.Lookup(name); ok {
			std = &Provider{Name: name, Bytes: data}
			break
		}
	}

	if std != nil && std.IsMemIOProvider() && usesWASI {
		return nil, fmt.Errorf(
			"invalid function, cannot use %q and import WASI; if using Rust, change the build target to wasm32-unknown-unknown",
			std.Name,
		)
	}

	return &Validated{
		Compiled:  compiled,
		imports:   imports,
		usesWASI:  usesWASI,
		stdImport: std,
	}, nil
}

// Imports returns the module's distinct imported module names, in
// first-seen order.
func (v *Validated) Imports() []string { return v.imports }

// UsesWASI reports whether the module imports the WASI preview1 system
// interface.
func (v *Validated) UsesWASI() bool { return v.usesWASI }

// Provider returns the resolved standard-provider dependency, or nil if
// the module imports none of the registered providers.
func (v *Validated) Provider() *Provider { return v.stdImport }

// UsesMemIO reports whether this module's resolved provider (if any)
// uses the memory-I/O strategy; this selects the IOHandler strategy.
func (v *Validated) UsesMemIO() bool {
	return v.stdImport != nil && v.stdImport.IsMemIOProvider()
}

func dedupedImportModules(compiled wazero.CompiledModule) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, fn := range compiled.ImportedFunctions() {
		if moduleName, _, ok := fn.Import(); ok {
			add(moduleName)
		}
	}
	for _, mem := range compiled.ImportedMemories() {
		if moduleName, _, ok := mem.Import(); ok {
			add(moduleName)
		}
	}
	return out
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
