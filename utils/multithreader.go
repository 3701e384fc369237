// Package utils holds small concurrency helpers shared by the optimizers, the span decoder and the
// dataset builder.
package utils

import (
	"runtime"
	"sync"
)

// MultiThread runs f for every integer in [start, end), fanned out over goroutines. It returns
// once every call has finished. Calls for different indexes may run concurrently, so f must only
// write to state owned by its index.
//
// opsPerThread is the number of consecutive indexes that a goroutine claims at a time, and
// threadsPerCPU the number of goroutines started per CPU. Ranges no larger than opsPerThread run
// on the calling goroutine.
func MultiThread(start, end int, f func(int), opsPerThread, threadsPerCPU int) {
	if end <= start {
		return
	}
	if opsPerThread < 1 {
		opsPerThread = 1
	}

	if end-start <= opsPerThread {
		for i := start; i < end; i++ {
			f(i)
		}
		return
	}

	numThreads := runtime.NumCPU() * threadsPerCPU
	if chunks := (end - start + opsPerThread - 1) / opsPerThread; chunks < numThreads {
		numThreads = chunks
	}

	index := start
	var indexMux sync.Mutex

	var wg sync.WaitGroup
	wg.Add(numThreads)
	for thread := 0; thread < numThreads; thread++ {
		go func() {
			defer wg.Done()

			for {
				indexMux.Lock()
				if index >= end {
					indexMux.Unlock()
					return
				}

				i := index
				index += opsPerThread
				indexMux.Unlock()

				e := i + opsPerThread
				if e > end {
					e = end
				}

				for ; i < e; i++ {
					f(i)
				}
			}
		}()
	}

	wg.Wait()
}
