// Package profile provides optional runtime profiling for sigil.
//
// Profiling uses [github.com/pkg/profile] and is compiled in only with the
// "pprof" build tag. Without the tag every operation is a no-op.
//
//	go build -tags pprof ./...
//	sigil --pprof-mode cpu --pprof-dir ./profiles template.txt
//	go tool pprof ./profiles/cpu.pprof
//
// Use [Modes] to list the supported modes: allocs, block, clock, cpu,
// goroutine, heap, mem, mutex, thread and trace.
//
// Built with the tag, the package also imports [net/http/pprof], which
// registers its handlers on [net/http.DefaultServeMux].
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
