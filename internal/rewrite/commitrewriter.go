package rewrite

import (
	"github.com/javanhut/gitcs-filter/internal/ferrors"
	"github.com/javanhut/gitcs-filter/internal/gitobj"
	"github.com/javanhut/gitcs-filter/internal/mangle"
	"github.com/javanhut/gitcs-filter/internal/objstore"
)

// Fixed offsets into a commit payload, per §4.8/§9. A commit payload
// is assumed to begin with "tree <40-hex>\n" and, for non-root
// commits, "parent <40-hex>\n" immediately after.
const (
	treePrefixLen    = len("tree ")   // 5
	treeHexEnd       = treePrefixLen + 40 // 45
	parentPrefixLen  = len("parent ") // 7
	parentFieldStart = treeHexEnd + 1 // 46
	parentHexStart   = parentFieldStart + parentPrefixLen  // 53
	parentHexEnd     = parentHexStart + 40                 // 93
	withParentSuffix = parentHexEnd + 1                    // 94
)

// CommitRewriter performs the serial commit rewrite pass of §4.8: it
// walks the commit list in order, substituting each commit's top-tree
// hash via the tree driver's results and relinking the parent pointer
// to the previous commit's rewritten hash.
type CommitRewriter struct {
	Origin *objstore.Origin
	Dest   *objstore.Destination
	Tables *mangle.Tables
}

// RewriteCommits rewrites revs (oldest first, as produced by the host
// VCS's reverse rev-list) and returns the new branch tip's hex.
func (c *CommitRewriter) RewriteCommits(revs []string) (string, error) {
	progress := NewCommitProgress(len(revs))

	var prevOrigHex, prevNewHex string
	for i, rev := range revs {
		hash, err := gitobj.ParseHash(rev)
		if err != nil {
			return "", err
		}

		objType, payload, err := c.Origin.Read(hash)
		if err != nil {
			return "", err
		}
		if objType != gitobj.TypeCommit {
			return "", ferrors.CorruptObject("commit %s is not a commit object (got %s)", rev, objType)
		}

		if len(payload) < treeHexEnd+1 || string(payload[:treePrefixLen]) != "tree " || payload[treeHexEnd] != '\n' {
			return "", ferrors.CorruptObject("commit %s payload does not begin with 'tree <hex>\\n'", rev)
		}
		origTreeHex := string(payload[treePrefixLen:treeHexEnd])

		newTreeHex, ok := c.Tables.LookupRoot(origTreeHex)
		if !ok {
			return "", ferrors.InvariantViolated("no rewritten top tree recorded for commit %s's tree %s", rev, origTreeHex)
		}

		hasParentField := len(payload) >= parentHexStart &&
			string(payload[parentFieldStart:parentHexStart]) == "parent "

		suffixStart := parentFieldStart
		var origParentHex string
		if hasParentField {
			if len(payload) < withParentSuffix || payload[parentHexEnd] != '\n' {
				return "", ferrors.CorruptObject("commit %s has a malformed parent field", rev)
			}
			origParentHex = string(payload[parentHexStart:parentHexEnd])
			suffixStart = withParentSuffix
		}

		// A second "parent " line immediately following means a merge
		// commit: non-linear history is unsupported (§1, §9).
		if len(payload) >= suffixStart+parentPrefixLen &&
			string(payload[suffixStart:suffixStart+parentPrefixLen]) == "parent " {
			return "", ferrors.InvariantViolated("commit %s has multiple parents (merge commits are unsupported)", rev)
		}

		if i == 0 {
			if hasParentField {
				return "", ferrors.InvariantViolated("first commit %s unexpectedly has a parent field", rev)
			}
		} else {
			if !hasParentField {
				return "", ferrors.CorruptObject("commit %s is missing its expected parent field", rev)
			}
			if origParentHex != prevOrigHex {
				return "", ferrors.InvariantViolated("commit %s's parent %s does not match the previous revision %s: history is not linear", rev, origParentHex, prevOrigHex)
			}
		}

		newPayload := make([]byte, 0, len(payload))
		newPayload = append(newPayload, "tree "...)
		newPayload = append(newPayload, newTreeHex...)
		newPayload = append(newPayload, '\n')
		if i > 0 {
			newPayload = append(newPayload, "parent "...)
			newPayload = append(newPayload, prevNewHex...)
			newPayload = append(newPayload, '\n')
		}
		newPayload = append(newPayload, payload[suffixStart:]...)

		newHash, err := c.Dest.Write(gitobj.TypeCommit, newPayload)
		if err != nil {
			return "", err
		}

		prevOrigHex = rev
		prevNewHex = newHash.String()
		progress.Advance()
	}

	return prevNewHex, nil
}
