package fs

// Fixed block geometry reported in attributes.
const (
	statBlockSize = 512
	ioBlockSize   = 4096
)

// safeInt64ToUint64 clamps negative sizes to zero.
func safeInt64ToUint64(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// safeIntToUint32 clamps negative ids to zero.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}

// blockCount returns the number of 512-byte blocks needed to hold size bytes.
func blockCount(size uint64) uint64 {
	return (size + statBlockSize - 1) / statBlockSize
}
