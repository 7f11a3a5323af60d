// Package trim implements the working-set trimming engine.
//
// A trim run asks the operating system to evict the resident pages of
// every process it can open, then reports how much physical memory the
// pass made available. Runs are best effort: processes that refuse a
// handle or a trim are skipped, and a run always completes with a
// result even when nothing could be trimmed.
//
// Engine executes one run synchronously; Runner moves runs onto a
// background goroutine and delivers the single result through a
// one-shot channel. The operating system surface is abstracted behind
// the System interface so the engine can be exercised against fakes.
package trim
