package pool

import "time"

// Logger is the interface LogReporter writes progress lines to
type Logger interface {
	Logf(string, ...interface{})
}

/*
Reporter consumes the progress increments of a run. Report receives the
title and total of the run and the channel increments are sent on. It
may return once the increments add up to total or the channel is closed.
Reporters only observe: whatever they leave unread is drained by Run.
*/
type Reporter interface {
	Report(title string, total int, progress <-chan int)
}

// ReporterFunc allows using a function as a Reporter
type ReporterFunc func(title string, total int, progress <-chan int)

// Report calls the function
func (rf ReporterFunc) Report(title string, total int, progress <-chan int) {
	rf(title, total, progress)
}

// Discard returns a Reporter that ignores progress
func Discard() Reporter {
	return ReporterFunc(func(string, int, <-chan int) {})
}

/*
LogReporter takes a Logger and a step and returns a Reporter that logs
a line every step processed items, and another when the run completes.
Steps lower than 1 only log completion.
*/
func LogReporter(l Logger, step int) Reporter {
	return ReporterFunc(func(title string, total int, progress <-chan int) {
		start := time.Now()
		done, next := 0, step
		for done < total {
			inc, ok := <-progress
			if !ok {
				break
			}
			done += inc
			if step > 0 && done >= next && done < total {
				l.Logf("%s: %d/%d (%.1f%%)", title, done, total, 100*float64(done)/float64(total))
				for next <= done {
					next += step
				}
			}
		}
		l.Logf("%s: %d/%d done in %v", title, done, total, time.Since(start))
	})
}
