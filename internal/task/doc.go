// Package task runs posting jobs in the background. Producers submit jobs to
// an unbounded in-memory JobQueue and return immediately; workers take jobs
// one at a time, in submission order, and hand each one to a Processor in
// its own scope. A failing job is logged and never stops the worker.
//
// Queued jobs live only in memory: they are lost when the process exits and
// are never retried.
package task
