package callgraph

import "path/filepath"

// astBackedExtensions mirrors internal/parserpool/langs.All's extension
// set: files these extensions cover get a real tree-sitter parse, so
// their symbols/relations are structurally accurate rather than guessed.
var astBackedExtensions = map[string]bool{
	".go": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".py": true, ".pyi": true,
}

// precisionHint implements spec.md §4.8's "precision hint derived from
// file extension" rule.
func precisionHint(relPath string) string {
	ext := filepath.Ext(relPath)
	if ext == "" {
		return "medium"
	}
	if astBackedExtensions[ext] {
		return "high"
	}
	return "low"
}

// graphQuality implements spec.md §4.8's classification: low if truncated
// or both sides are empty, high if both sides are populated and the
// traversal found at least 10 nodes, else med.
func graphQuality(truncated bool, upstreamEmpty, downstreamEmpty bool, nodeCount int) Quality {
	if truncated || (upstreamEmpty && downstreamEmpty) {
		return QualityLow
	}
	if !upstreamEmpty && !downstreamEmpty && nodeCount >= 10 {
		return QualityHigh
	}
	return QualityMed
}

// qualityScore combines the precision hint with relation density (how
// many nodes the traversal actually found) and the root symbol's file
// size (very large files make per-line confidence less trustworthy) into
// spec.md §4.8's 0-100 quality score. No concrete formula is given
// upstream, so the weights here are a judgment call: the precision hint
// dominates, density contributes up to 20 points, and file size can only
// ever subtract (huge files lower confidence, they never add to it).
func qualityScore(hint string, nodeCount int, fileSize int64) int {
	base := 45
	switch hint {
	case "high":
		base = 70
	case "low":
		base = 20
	}

	density := nodeCount / 2
	if density > 20 {
		density = 20
	}

	score := base + density
	if fileSize > 1_000_000 {
		score -= 15
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
