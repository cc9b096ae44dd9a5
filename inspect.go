package zipkit

// Inspection holds aggregate statistics for an archive.
//
// Counts and totals come from the central directory alone, so producing an
// Inspection never reads entry data.
type Inspection struct {
	entries      int
	files        int
	dirs         int
	methods      map[Method]int
	compressed   uint64
	uncompressed uint64
}

// Inspect walks the directory once and tallies entry statistics.
func (a *Archive) Inspect() (*Inspection, error) {
	ins := &Inspection{methods: make(map[Method]int)}
	for e, err := range a.Entries() {
		if err != nil {
			return nil, err
		}
		ins.entries++
		if e.IsDir() {
			ins.dirs++
		} else {
			ins.files++
		}
		ins.methods[e.Method()]++
		ins.compressed += e.CompressedSize()
		ins.uncompressed += e.UncompressedSize()
	}
	return ins, nil
}

// EntryCount returns the number of entries in the archive.
func (i *Inspection) EntryCount() int {
	return i.entries
}

// FileCount returns the number of file entries.
func (i *Inspection) FileCount() int {
	return i.files
}

// DirCount returns the number of directory marker entries.
func (i *Inspection) DirCount() int {
	return i.dirs
}

// MethodCount returns the number of entries stored with the given method.
func (i *Inspection) MethodCount(m Method) int {
	return i.methods[m]
}

// TotalCompressedSize returns the sum of all compressed entry sizes.
func (i *Inspection) TotalCompressedSize() uint64 {
	return i.compressed
}

// TotalUncompressedSize returns the sum of all uncompressed entry sizes.
func (i *Inspection) TotalUncompressedSize() uint64 {
	return i.uncompressed
}

// CompressionRatio returns the ratio of compressed to uncompressed bytes.
// An archive with no file data has a ratio of 1.
func (i *Inspection) CompressionRatio() float64 {
	if i.uncompressed == 0 {
		return 1.0
	}
	return float64(i.compressed) / float64(i.uncompressed)
}
