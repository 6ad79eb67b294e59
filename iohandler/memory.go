package iohandler

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// resultStructSize is the size in bytes of the little-endian record
// finalize() returns an offset to: six u32 fields, per spec.md §6's
// memory-I/O ABI table.
const resultStructSize = 24

// memoryState holds the per-run state the memory-I/O strategy needs:
// the guest instance (once instantiated) and the log buffer finalize's
// two segments are appended into.
type memoryState struct {
	guest api.Module
	log   *boundedLog
}

// Initialize implements spec.md §4.F step 1: call the guest's
// initialize(len) export with the input length, then write the input
// container's raw bytes at the offset it returns. guest must already be
// instantiated and export a linear memory named "memory".
func (h *Handler) Initialize(ctx context.Context, guest api.Module, inputRaw []byte) error {
	h.mem.guest = guest

	initFn := guest.ExportedFunction("initialize")
	if initFn == nil {
		return fmt.Errorf("iohandler: guest does not export required function %q", "initialize")
	}
	results, err := initFn.Call(ctx, uint64(len(inputRaw)))
	if err != nil {
		return fmt.Errorf("iohandler: initialize trapped: %w", err)
	}
	offset := uint32(results[0])
	if len(inputRaw) > 0 {
		if !guest.Memory().Write(offset, inputRaw) {
			return fmt.Errorf("iohandler: failed to write %d input bytes at offset %d", len(inputRaw), offset)
		}
	}
	return nil
}

// Finalize implements spec.md §4.F steps 2-4: call finalize(), read the
// 24-byte little-endian result record at the offset it returns, and
// return the concatenated output and log bytes. Per spec.md §9(c), this
// must not be called at all when the main guest invocation already
// failed; the caller is responsible for skipping it in that case.
func (h *Handler) Finalize(ctx context.Context) (output []byte, logs []byte, err error) {
	guest := h.mem.guest
	finFn := guest.ExportedFunction("finalize")
	if finFn == nil {
		return nil, nil, fmt.Errorf("iohandler: guest does not export required function %q", "finalize")
	}
	results, err := finFn.Call(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("iohandler: finalize trapped: %w", err)
	}
	offset := uint32(results[0])

	record, ok := guest.Memory().Read(offset, resultStructSize)
	if !ok {
		return nil, nil, fmt.Errorf("iohandler: failed to read %d-byte result record at offset %d", resultStructSize, offset)
	}

	outputPtr := binary.LittleEndian.Uint32(record[0:4])
	outputLen := binary.LittleEndian.Uint32(record[4:8])
	logPtr1 := binary.LittleEndian.Uint32(record[8:12])
	logLen1 := binary.LittleEndian.Uint32(record[12:16])
	logPtr2 := binary.LittleEndian.Uint32(record[16:20])
	logLen2 := binary.LittleEndian.Uint32(record[20:24])

	output, err = readGuestBytes(guest, outputPtr, outputLen, "output")
	if err != nil {
		return nil, nil, err
	}

	// Open Question (b) from spec.md §9: a segment is "present" purely by
	// length, regardless of its pointer value — ptr=0, len=0 is simply
	// not appended.
	if logLen1 > 0 {
		seg, err := readGuestBytes(guest, logPtr1, logLen1, "log segment 1")
		if err != nil {
			return nil, nil, err
		}
		h.mem.log.append(seg)
	}
	if logLen2 > 0 {
		seg, err := readGuestBytes(guest, logPtr2, logLen2, "log segment 2")
		if err != nil {
			return nil, nil, err
		}
		h.mem.log.append(seg)
	}

	return output, h.mem.log.Bytes(), nil
}

func readGuestBytes(guest api.Module, ptr, length uint32, what string) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	data, ok := guest.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("iohandler: failed to read %s (%d bytes at offset %d)", what, length, ptr)
	}
	// Copy: the returned slice aliases guest linear memory, which the
	// engine may reuse or grow after this call returns.
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}
