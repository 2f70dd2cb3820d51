package treewalk

import (
	"bytes"
	"encoding/binary"
)

// Query/Result payloads are fixed-size C-style structs in the original
// source, shipped across MPI as raw bytes (spec.md §3 "Opaque byte
// blocks whose sizes are declared per-walk"). encoding/binary's
// reflection-based Read/Write already do exactly this for a Go struct
// of fixed-size fields — no third-party wire codec in the retrieval
// pack targets raw fixed-layout struct packing (protobuf/gob elsewhere
// in the corpus serve dynamic network RPC, a different problem), so
// this is the one place the engine leans on the standard library
// instead of a pack dependency.
//
// A kernel's Query/Result type must therefore contain only fixed-size
// fields (no slices, strings, or pointers) — the same constraint the C
// struct had implicitly.

// sizeOf returns the encoded size of v, or -1 if v is not fixed-size
// (binary.Size's sentinel, surfaced here so callers can turn it into a
// FatalError per spec.md §7's alignment check).
func sizeOf(v any) int {
	return binary.Size(v)
}

func encodeFixed(v any) []byte {
	buf := &bytes.Buffer{}
	// A Query/Result whose size was validated by sizeOf (in
	// exchangeQueries/exchangeResults, before encoding) cannot fail to
	// encode; the panic surfaces the one case that would mean sizeOf
	// itself was bypassed.
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func decodeFixed(data []byte, v any) {
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, v); err != nil {
		panic(err)
	}
}
