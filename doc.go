// Package zipkit builds and reads ZIP containers as streams of bytes.
//
// The writer assembles an archive fully in memory: entries are queued,
// their pipelines drained concurrently, and Build returns the finished
// container as a single buffer. The reader works against any [ByteSource]
// and fetches member data on demand, so archives can be consumed from
// memory, local files, or remote stores without downloading whole
// containers. The http and s3 subpackages provide range-reading sources
// for those backends.
//
// The format is a deliberate subset of ZIP: store and deflate methods,
// UTF-8 names, no ZIP64, no encryption, no multi-disk archives. Archives
// this package writes open in standard ZIP tooling.
//
// # Writing
//
// Queue entries, then build:
//
//	w := zipkit.NewWriter()
//	w.AddString("hello.txt", "World")
//	w.AddBytes("logo.png", logo, zipkit.EntryWithMethod(zipkit.MethodStore))
//	data, err := w.Build(ctx)
//
// Build drains entry pipelines concurrently and reports progress through
// optional callbacks:
//
//	data, err := w.Build(ctx,
//	    zipkit.BuildWithConcurrency(4),
//	    zipkit.BuildWithProgress(func(done, total uint64) {
//	        fmt.Printf("\r%d/%d", done, total)
//	    }),
//	)
//
// # Reading
//
// Open an archive and iterate its directory:
//
//	a, err := zipkit.OpenArchive(bytes.NewReader(data))
//	if err != nil {
//	    return err
//	}
//	for e, err := range a.Entries() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(e.Name(), e.UncompressedSize())
//	}
//
// Archive implements fs.FS over the member paths, so archives work with
// fs.WalkDir, template loading, and anything else that accepts a
// filesystem:
//
//	content, err := a.ReadFile("docs/readme.md")
package zipkit
