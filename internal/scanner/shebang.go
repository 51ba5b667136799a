package scanner

import (
	"bytes"
	"strings"

	"github.com/t14raptor/go-fast/parser"
)

// SniffLanguage implements spec.md §4.5's "dispatch by extension / content
// shebang" for extensionless scripts. It is deliberately narrow: a shebang
// line naming a known interpreter resolves directly; otherwise, for files
// small enough to probe cheaply, it asks go-fast's parser whether the
// content parses as a JavaScript program (the same probe the teacher's
// JavaScriptGoFastAnalyzer performs before falling back to regex
// analysis), generalized here from "extract symbols" to "does this look
// like JS at all."
func SniffLanguage(content []byte) string {
	head := content
	if len(head) > 256 {
		head = head[:256]
	}

	if bytes.HasPrefix(head, []byte("#!")) {
		nl := bytes.IndexByte(head, '\n')
		line := string(head)
		if nl >= 0 {
			line = string(head[:nl])
		}
		switch {
		case strings.Contains(line, "python"):
			return "python"
		case strings.Contains(line, "node"):
			return "javascript"
		case strings.Contains(line, "go run"):
			return "go"
		}
	}

	if len(content) == 0 || len(content) > 64*1024 {
		return ""
	}
	if _, err := parser.ParseFile(string(content)); err == nil {
		return "javascript"
	}
	return ""
}
