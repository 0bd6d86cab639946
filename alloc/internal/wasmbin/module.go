package wasmbin

const (
	magic   uint32 = 0x6D736100 // "\0asm"
	version uint32 = 0x01

	sectionMemory byte = 5
	sectionExport byte = 7

	kindMemory   byte = 2
	limitsHasMax byte = 0x01
)

// MemoryExport is the export name of the memory defined by MemoryModule.
const MemoryExport = "memory"

// MemoryModule encodes a module that defines and exports a single linear
// memory with the given page limits and nothing else.
func MemoryModule(minPages, maxPages uint32) []byte {
	w := NewWriter()
	w.WriteU32LE(magic)
	w.WriteU32LE(version)

	mem := NewWriter()
	mem.WriteU32(1)
	mem.Byte(limitsHasMax)
	mem.WriteU32(minPages)
	mem.WriteU32(maxPages)
	writeSection(w, sectionMemory, mem.Bytes())

	exp := NewWriter()
	exp.WriteU32(1)
	exp.WriteName(MemoryExport)
	exp.Byte(kindMemory)
	exp.WriteU32(0)
	writeSection(w, sectionExport, exp.Bytes())

	return w.Bytes()
}

func writeSection(w *Writer, id byte, data []byte) {
	w.Byte(id)
	w.WriteU32(uint32(len(data)))
	w.WriteBytes(data)
}
