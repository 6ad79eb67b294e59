package module

// buildImportOnlyModule hand-assembles a minimal valid WebAssembly binary
// that imports one nullary function per (moduleName, fieldName) pair and
// defines nothing else. It exists so module tests can exercise real
// import enumeration without needing a WAT-to-wasm toolchain at test
// time — the Go port of original_source/src/validated_module.rs's
// inline `(module (import ...))` WAT fixtures, ported to raw bytes.
func buildImportOnlyModule(imports [][2]string) []byte {
	var buf []byte
	buf = append(buf, 0x00, 0x61, 0x73, 0x6d) // magic "\0asm"
	buf = append(buf, 0x01, 0x00, 0x00, 0x00) // version 1

	// Type section: one type, () -> ().
	typeSection := []byte{0x01, 0x60, 0x00, 0x00}
	buf = append(buf, 0x01, byte(len(typeSection)))
	buf = append(buf, typeSection...)

	// Import section: one entry per requested import, all typed () -> ().
	var importSection []byte
	importSection = appendULEB128(importSection, uint32(len(imports)))
	for _, imp := range imports {
		importSection = appendName(importSection, imp[0])
		importSection = appendName(importSection, imp[1])
		importSection = append(importSection, 0x00) // func import kind
		importSection = appendULEB128(importSection, 0)
	}
	buf = append(buf, 0x02)
	buf = appendULEB128(buf, uint32(len(importSection)))
	buf = append(buf, importSection...)

	return buf
}

func appendName(buf []byte, s string) []byte {
	buf = appendULEB128(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendULEB128(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			return buf
		}
	}
}
