// Command zipls lists the contents of a ZIP archive.
//
// The archive argument is a local path, an http(s) URL, or an s3://bucket/key
// object. Remote archives are read with ranged requests, so listing entries
// never downloads their data.
//
// Usage:
//
//	zipls [flags] <path|url>
//
// Flags:
//
//	-l         long listing with methods and sizes
//	-s         aggregate statistics instead of entries
//	-v         log archive operations to stderr
//	-timeout   overall deadline for remote archives
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/meigma/zipkit"
	zkhttp "github.com/meigma/zipkit/http"
	zks3 "github.com/meigma/zipkit/s3"
)

func main() {
	long := flag.Bool("l", false, "long listing with methods and sizes")
	summary := flag.Bool("s", false, "print aggregate statistics instead of entries")
	verbose := flag.Bool("v", false, "log archive operations to stderr")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline for remote archives")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: zipls [flags] <path|url>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	target := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var opts []zipkit.Option
	if *verbose {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		opts = append(opts, zipkit.WithLogger(slog.New(handler)))
	}

	a, closer, err := openTarget(ctx, target, opts)
	if err != nil {
		log.Fatalf("open %s: %v", target, err)
	}
	if closer != nil {
		defer closer.Close()
	}

	if *summary {
		printSummary(a)
		return
	}
	printEntries(a, *long)
}

// openTarget resolves a path or URL to an open archive. The returned closer
// is nil for remote sources, which hold no resources of their own.
func openTarget(ctx context.Context, target string, opts []zipkit.Option) (*zipkit.Archive, io.Closer, error) {
	if u, err := url.Parse(target); err == nil {
		switch u.Scheme {
		case "http", "https":
			src, err := zkhttp.NewSource(ctx, target)
			if err != nil {
				return nil, nil, err
			}
			a, err := zipkit.OpenArchive(src, opts...)
			return a, nil, err
		case "s3":
			bucket := u.Host
			key := strings.TrimPrefix(u.Path, "/")
			if bucket == "" || key == "" {
				return nil, nil, errors.New("s3 target needs a bucket and a key")
			}
			cfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("load aws config: %w", err)
			}
			src, err := zks3.NewSource(ctx, awss3.NewFromConfig(cfg), bucket, key)
			if err != nil {
				return nil, nil, err
			}
			a, err := zipkit.OpenArchive(src, opts...)
			return a, nil, err
		}
	}

	fa, err := zipkit.OpenFile(target, opts...)
	if err != nil {
		return nil, nil, err
	}
	return fa.Archive, fa, nil
}

func printEntries(a *zipkit.Archive, long bool) {
	for e, err := range a.Entries() {
		if err != nil {
			log.Fatalf("read directory: %v", err)
		}
		if long {
			fmt.Printf("%-7s %12d %12d  %s\n", e.Method(), e.CompressedSize(), e.UncompressedSize(), e.Name())
		} else {
			fmt.Println(e.Name())
		}
	}
}

func printSummary(a *zipkit.Archive) {
	ins, err := a.Inspect()
	if err != nil {
		log.Fatalf("inspect: %v", err)
	}
	fmt.Printf("entries:      %d (%d files, %d directories)\n", ins.EntryCount(), ins.FileCount(), ins.DirCount())
	fmt.Printf("stored:       %d\n", ins.MethodCount(zipkit.MethodStore))
	fmt.Printf("deflated:     %d\n", ins.MethodCount(zipkit.MethodDeflate))
	fmt.Printf("compressed:   %d bytes\n", ins.TotalCompressedSize())
	fmt.Printf("uncompressed: %d bytes\n", ins.TotalUncompressedSize())
	fmt.Printf("ratio:        %.3f\n", ins.CompressionRatio())
}
