// Package process implements the runtime that launches games as local
// processes.
//
// Every process is placed in its own process group so that Terminate can
// signal the compatibility layer together with the helpers it forks. This is
// only guaranteed on Linux and other Unix systems; on Windows only the direct
// child is signalled.
//
// Liveness is reported without blocking: a dedicated goroutine reaps the
// process and Exited inspects the outcome. Output on stdout and stderr is
// streamed line by line through Logs.
package process
