package runner

// buildMinimalExportModule hand-assembles a valid WebAssembly binary
// exporting one nullary function named exportName whose body is just
// `end` (a no-op that returns success) — enough to drive Engine.Run
// through the streamed-stdio strategy without any imports or external
// toolchain at test time.
func buildMinimalExportModule(exportName string) []byte {
	var buf []byte
	buf = append(buf, 0x00, 0x61, 0x73, 0x6d) // magic
	buf = append(buf, 0x01, 0x00, 0x00, 0x00) // version 1

	// Type section: one type, () -> ().
	typeSection := []byte{0x01, 0x60, 0x00, 0x00}
	buf = append(buf, 0x01, byte(len(typeSection)))
	buf = append(buf, typeSection...)

	// Function section: one function, using type 0.
	funcSection := []byte{0x01, 0x00}
	buf = append(buf, 0x03, byte(len(funcSection)))
	buf = append(buf, funcSection...)

	// Export section: export function 0 under exportName.
	var exportSection []byte
	exportSection = appendULEB32(exportSection, 1) // one export
	exportSection = appendName32(exportSection, exportName)
	exportSection = append(exportSection, 0x00) // func export kind
	exportSection = appendULEB32(exportSection, 0)
	buf = append(buf, 0x07)
	buf = appendULEB32(buf, uint32(len(exportSection)))
	buf = append(buf, exportSection...)

	// Code section: one body, no locals, just `end`.
	body := []byte{0x00, 0x0b} // 0 locals, end
	var codeSection []byte
	codeSection = appendULEB32(codeSection, 1) // one function body
	codeSection = appendULEB32(codeSection, uint32(len(body)))
	codeSection = append(codeSection, body...)
	buf = append(buf, 0x0a)
	buf = appendULEB32(buf, uint32(len(codeSection)))
	buf = append(buf, codeSection...)

	return buf
}

func appendName32(buf []byte, s string) []byte {
	buf = appendULEB32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendULEB32(buf []byte, v uint32) []byte {
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
