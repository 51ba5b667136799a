// Package types holds the entities shared across every deckard subsystem:
// roots, files, symbols, relations, failed tasks, snippets and contexts,
// plus the stable-hash identifiers that tie them together.
package types

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/deckard/internal/idcodec"
)

// RootID identifies a workspace root by a stable hash of its absolute path.
type RootID string

// FileID is a File's primary key: RootID + "/" + RelPath.
type FileID string

// SymbolID is a stable hash of Path + Kind + QualName.
type SymbolID string

const rootPrefix = "root-"

// NewRootID derives the stable id for a root's canonical absolute path.
func NewRootID(absPath string) RootID {
	return RootID(rootPrefix + idcodec.Encode(xxhash.Sum64String(absPath)))
}

// NewFileID derives a File's primary key from its root and relative path.
func NewFileID(root RootID, relPath string) FileID {
	return FileID(string(root) + "/" + relPath)
}

// NewSymbolID derives the stable hash id for a symbol.
func NewSymbolID(path, kind, qualname string) SymbolID {
	h := xxhash.New()
	_, _ = h.WriteString(path)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(kind)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(qualname)
	return SymbolID(idcodec.Encode(h.Sum64()))
}

// ContentHash hashes raw file bytes for change detection independent of mtime.
func ContentHash(content []byte) string {
	return idcodec.Encode(xxhash.Sum64(content))
}

// LegacyRootID reports whether a path-like string is a legacy bare path
// that predates root scoping, i.e. does not carry the "root-<hash>/"
// prefix convention.
func LegacyRootID(path string) bool {
	return len(path) < len(rootPrefix) || path[:len(rootPrefix)] != rootPrefix
}

func (r RootID) String() string { return string(r) }
func (f FileID) String() string { return string(f) }
func (s SymbolID) String() string {
	return string(s)
}

// Empty reports whether the id carries no content.
func (s SymbolID) Empty() bool { return s == "" }

// Qualify renders a human-debuggable label, used in logs and error hints.
func Qualify(path, kind, name string) string {
	return fmt.Sprintf("%s:%s:%s", path, kind, name)
}
