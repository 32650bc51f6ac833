// Package revlist parses the alternating "commit <hex>" / "<tree-hex>"
// listing produced by `git rev-list --format=%T --reverse <branch>`
// (§6), and can invoke that command directly against a git directory.
package revlist

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/javanhut/gitcs-filter/internal/ferrors"
)

// List holds the parsed, order-correlated commit and top-tree hexes:
// List.Commits[i]'s top tree is List.Trees[i].
type List struct {
	Commits []string
	Trees   []string
}

// Parse reads the "commit <hex>" / "<hex>" alternating format from r.
// Blank lines are ignored. It enforces the len(revs)==len(trees)
// invariant the original tool asserts before doing any rewriting.
func Parse(r io.Reader) (*List, error) {
	list := &List{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "commit") {
			rev := strings.TrimSpace(line[len("commit"):])
			if len(rev) != 40 {
				return nil, ferrors.CorruptObject("rev-list line %q does not carry a 40-char commit hex", line)
			}
			list.Commits = append(list.Commits, rev)
			continue
		}
		if len(line) != 40 {
			return nil, ferrors.CorruptObject("rev-list line %q is neither a commit line nor a 40-char tree hex", line)
		}
		list.Trees = append(list.Trees, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, ferrors.IoError("scan rev-list input: %s", err)
	}
	if len(list.Commits) != len(list.Trees) {
		return nil, ferrors.InvariantViolated("rev-list parse produced %d commits but %d trees", len(list.Commits), len(list.Trees))
	}
	return list, nil
}

// Run invokes `git rev-list --format=%T --reverse <branch>` against
// gitDir and parses its stdout.
func Run(ctx context.Context, gitDir, branch string) (*List, error) {
	cmd := exec.CommandContext(ctx, "git", "--git-dir", gitDir, "rev-list", "--format=%T", "--reverse", branch)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, ferrors.IoError("pipe git rev-list stdout: %s", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, ferrors.IoError("start git rev-list: %s", err)
	}
	list, parseErr := Parse(stdout)
	waitErr := cmd.Wait()
	if waitErr != nil {
		return nil, ferrors.IoError("git rev-list: %s", waitErr)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return list, nil
}
