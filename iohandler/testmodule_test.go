package iohandler

import "encoding/binary"

// These helpers hand-assemble minimal WebAssembly binaries so the
// memory-I/O ABI and the deterministic-WASI stubs can be exercised
// without a WAT-to-wasm toolchain at test time, the same pattern used
// by module/testmodule_test.go and runner/testmodule_test.go.

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

// appendSLEB128 encodes a signed 32-bit value the way wasm's i32.const
// operand is encoded.
func appendSLEB128(buf []byte, v int32) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

func appendName(buf []byte, s string) []byte {
	buf = appendULEB128(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendSection(buf []byte, id byte, content []byte) []byte {
	buf = append(buf, id)
	buf = appendULEB128(buf, uint32(len(content)))
	return append(buf, content...)
}

// buildMemoryIOGuestModule hand-assembles a guest exporting a linear
// memory, initialize(i32) -> i32, and finalize() -> i32, per spec.md §6's
// memory-I/O ABI:
//
//   - initialize always returns offset 0 (where the host writes input).
//   - finalize always returns offset 200, which a data segment preloads
//     with a 24-byte little-endian result record pointing at "ABCDE"
//     (output, at offset 300) and "LOG" (the first log segment, at
//     offset 400). The second log segment's pointer is a bogus nonzero
//     value with length 0, so a correct Finalize must never dereference
//     it — spec.md §9 Open Question (b): a segment's presence is decided
//     by length alone, regardless of its pointer.
func buildMemoryIOGuestModule() []byte {
	buf := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// Type section: type0 (i32)->(i32) for initialize, type1 ()->(i32)
	// for finalize.
	var typeSection []byte
	typeSection = appendULEB128(typeSection, 2)
	typeSection = append(typeSection, 0x60, 0x01, 0x7f, 0x01, 0x7f)
	typeSection = append(typeSection, 0x60, 0x00, 0x01, 0x7f)
	buf = appendSection(buf, 0x01, typeSection)

	// Function section: two functions, using type0 and type1.
	var funcSection []byte
	funcSection = appendULEB128(funcSection, 2)
	funcSection = append(funcSection, 0x00, 0x01)
	buf = appendSection(buf, 0x03, funcSection)

	// Memory section: one memory, minimum one page.
	var memSection []byte
	memSection = appendULEB128(memSection, 1)
	memSection = append(memSection, 0x00)
	memSection = appendULEB128(memSection, 1)
	buf = appendSection(buf, 0x05, memSection)

	// Export section: initialize, finalize, memory.
	var exportSection []byte
	exportSection = appendULEB128(exportSection, 3)
	exportSection = appendName(exportSection, "initialize")
	exportSection = append(exportSection, 0x00)
	exportSection = appendULEB128(exportSection, 0)
	exportSection = appendName(exportSection, "finalize")
	exportSection = append(exportSection, 0x00)
	exportSection = appendULEB128(exportSection, 1)
	exportSection = appendName(exportSection, "memory")
	exportSection = append(exportSection, 0x02)
	exportSection = appendULEB128(exportSection, 0)
	buf = appendSection(buf, 0x07, exportSection)

	// Code section: initialize returns 0, finalize returns 200.
	body0 := []byte{0x00, 0x41, 0x00, 0x0b}
	var body1 []byte
	body1 = append(body1, 0x00, 0x41)
	body1 = appendSLEB128(body1, 200)
	body1 = append(body1, 0x0b)

	var codeSection []byte
	codeSection = appendULEB128(codeSection, 2)
	codeSection = appendULEB128(codeSection, uint32(len(body0)))
	codeSection = append(codeSection, body0...)
	codeSection = appendULEB128(codeSection, uint32(len(body1)))
	codeSection = append(codeSection, body1...)
	buf = appendSection(buf, 0x0a, codeSection)

	// Data section: the 24-byte result record at offset 200, "ABCDE" at
	// offset 300, "LOG" at offset 400.
	record := make([]byte, 24)
	binary.LittleEndian.PutUint32(record[0:4], 300)       // output_ptr
	binary.LittleEndian.PutUint32(record[4:8], 5)         // output_len
	binary.LittleEndian.PutUint32(record[8:12], 400)      // log_ptr_1
	binary.LittleEndian.PutUint32(record[12:16], 3)       // log_len_1
	binary.LittleEndian.PutUint32(record[16:20], 9999999) // log_ptr_2 (bogus)
	binary.LittleEndian.PutUint32(record[20:24], 0)       // log_len_2 (absent)

	outputBytes := []byte("ABCDE")
	logBytes := []byte("LOG")

	var dataSection []byte
	dataSection = appendULEB128(dataSection, 3)
	dataSection = appendDataSegment(dataSection, 200, record)
	dataSection = appendDataSegment(dataSection, 300, outputBytes)
	dataSection = appendDataSegment(dataSection, 400, logBytes)
	buf = appendSection(buf, 0x0b, dataSection)

	return buf
}

func appendDataSegment(buf []byte, offset int32, data []byte) []byte {
	buf = append(buf, 0x00) // active, memory index 0
	buf = append(buf, 0x41) // i32.const
	buf = appendSLEB128(buf, offset)
	buf = append(buf, 0x0b) // end
	buf = appendULEB128(buf, uint32(len(data)))
	return append(buf, data...)
}

// buildWASIDeterminismGuestModule hand-assembles a guest that imports
// wasi_snapshot_preview1's clock_time_get and random_get, calls both
// once, and writes their results into its own linear memory: the
// 8-byte timestamp at offset 0, the 8-byte random buffer at offset 8.
// It exports "run" and its memory so a test can invoke it and inspect
// what the deterministic stubs actually wrote.
func buildWASIDeterminismGuestModule() []byte {
	buf := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// type0: (i32, i64, i32) -> (i32), clock_time_get's signature.
	// type1: (i32, i32) -> (i32), random_get's signature.
	// type2: () -> (), the local "run" function.
	var typeSection []byte
	typeSection = appendULEB128(typeSection, 3)
	typeSection = append(typeSection, 0x60, 0x03, 0x7f, 0x7e, 0x7f, 0x01, 0x7f)
	typeSection = append(typeSection, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f)
	typeSection = append(typeSection, 0x60, 0x00, 0x00)
	buf = appendSection(buf, 0x01, typeSection)

	// Import section: clock_time_get (type0, import idx0), random_get
	// (type1, import idx1).
	var importSection []byte
	importSection = appendULEB128(importSection, 2)
	importSection = appendName(importSection, "wasi_snapshot_preview1")
	importSection = appendName(importSection, "clock_time_get")
	importSection = append(importSection, 0x00)
	importSection = appendULEB128(importSection, 0)
	importSection = appendName(importSection, "wasi_snapshot_preview1")
	importSection = appendName(importSection, "random_get")
	importSection = append(importSection, 0x00)
	importSection = appendULEB128(importSection, 1)
	buf = appendSection(buf, 0x02, importSection)

	// Function section: one local function (index 2, after the two
	// imports), using type2.
	var funcSection []byte
	funcSection = appendULEB128(funcSection, 1)
	funcSection = append(funcSection, 0x02)
	buf = appendSection(buf, 0x03, funcSection)

	// Memory section: one memory, minimum one page.
	var memSection []byte
	memSection = appendULEB128(memSection, 1)
	memSection = append(memSection, 0x00)
	memSection = appendULEB128(memSection, 1)
	buf = appendSection(buf, 0x05, memSection)

	// Export section: memory, and the local function as "run".
	var exportSection []byte
	exportSection = appendULEB128(exportSection, 2)
	exportSection = appendName(exportSection, "memory")
	exportSection = append(exportSection, 0x02)
	exportSection = appendULEB128(exportSection, 0)
	exportSection = appendName(exportSection, "run")
	exportSection = append(exportSection, 0x00)
	exportSection = appendULEB128(exportSection, 2)
	buf = appendSection(buf, 0x07, exportSection)

	// Code section: call clock_time_get(0, 0, 0), drop its errno, call
	// random_get(8, 8), drop its errno, end.
	body := []byte{
		0x00,       // 0 locals
		0x41, 0x00, // i32.const 0 (clock_id)
		0x42, 0x00, // i64.const 0 (precision)
		0x41, 0x00, // i32.const 0 (result_ptr)
		0x10, 0x00, // call 0 (clock_time_get)
		0x1a,       // drop
		0x41, 0x08, // i32.const 8 (buf_ptr)
		0x41, 0x08, // i32.const 8 (buf_len)
		0x10, 0x01, // call 1 (random_get)
		0x1a, // drop
		0x0b, // end
	}
	var codeSection []byte
	codeSection = appendULEB128(codeSection, 1)
	codeSection = appendULEB128(codeSection, uint32(len(body)))
	codeSection = append(codeSection, body...)
	buf = appendSection(buf, 0x0a, codeSection)

	return buf
}
