package rewrite

import (
	"fmt"
	"sync"
	"time"
)

// TreeProgress reports a rolling rate and ETA for the parallel
// tree-rewrite phase (§4.7), reproducing the original tool's cadence:
// print on every task while done&63==1, always on the last task, with
// a 5-second sliding checkpoint window for the rate estimate.
type TreeProgress struct {
	mu              sync.Mutex
	pending         int
	done            int
	start           time.Time
	checkpointDone  int
	checkpointStart time.Time
}

// NewTreeProgress creates a reporter for a run of pending tasks.
func NewTreeProgress(pending int) *TreeProgress {
	now := time.Now()
	return &TreeProgress{
		pending:         pending,
		start:           now,
		checkpointStart: now,
	}
}

// Advance records one completed tree rewrite and, if this is a
// reporting tick, prints a progress line to stdout.
func (p *TreeProgress) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	now := time.Now()
	shouldReport := p.done == p.pending || (p.done&63) == 1
	if shouldReport {
		doneSinceCheckpoint := p.done - p.checkpointDone
		if doneSinceCheckpoint < 1 {
			doneSinceCheckpoint = 1
		}
		elapsed := now.Sub(p.checkpointStart)
		perTree := elapsed / time.Duration(doneSinceCheckpoint)
		var rate float64
		if perTree > 0 {
			rate = float64(time.Second) / float64(perTree)
		}
		remaining := p.pending - p.done
		eta := time.Duration(remaining) * perTree
		fmt.Printf("\r%d / %d trees rewritten (%.1f trees/sec), ETA: %s      ", p.done, p.pending, rate, formatDuration(eta))
	}
	if now.Sub(p.checkpointStart) > 5*time.Second {
		p.checkpointDone = p.done
		p.checkpointStart = now
	}
}

// Done prints the final summary line.
func (p *TreeProgress) Done(extractedCount int, stagingDir string) {
	p.mu.Lock()
	elapsed := time.Since(p.start)
	done := p.done
	p.mu.Unlock()

	var rate float64
	if elapsed > 0 {
		rate = float64(done) / elapsed.Seconds()
	}
	fmt.Printf("\ntree rewrite completed in %s (%.1f trees/sec)\n", formatDuration(elapsed), rate)
	fmt.Printf("extracted %d files into %s\n", extractedCount, stagingDir)
}

// CommitProgress reports progress for the serial commit-rewrite phase
// (§4.8), reporting every 100 commits or on the last one.
type CommitProgress struct {
	total int
	done  int
	start time.Time
}

// NewCommitProgress creates a reporter for a run of total commits.
func NewCommitProgress(total int) *CommitProgress {
	return &CommitProgress{total: total, start: time.Now()}
}

// Advance records one rewritten commit and prints a progress line on
// the reporting cadence.
func (p *CommitProgress) Advance() {
	p.done++
	if p.done%100 == 1 || p.done == p.total {
		elapsed := time.Since(p.start)
		perCommit := elapsed / time.Duration(p.done)
		var rate float64
		if perCommit > 0 {
			rate = float64(time.Second) / float64(perCommit)
		}
		eta := time.Duration(p.total-p.done) * perCommit
		fmt.Printf("\r%d / %d commits rewritten (%.1f commits/sec), ETA: %s      ", p.done, p.total, rate, formatDuration(eta))
	}
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02dh:%02dm:%02ds", h, m, s)
}
