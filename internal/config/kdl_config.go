package config

import (
	"fmt"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// loadKDLInto parses a deckard.kdl file and applies any nodes it contains
// on top of cfg's existing defaults, leaving fields the file doesn't
// mention untouched. This mirrors the teacher's kdl_config.go AST-walking
// style (node-by-node, first-argument coercion helpers) generalized to
// deckard's own section set.
func loadKDLInto(cfg *Config, path string) error {
	content, err := readFile(path)
	if err != nil {
		return err
	}

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("parse KDL: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "storage":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_batch":
					if v, ok := firstIntArg(cn); ok {
						cfg.Storage.MaxBatch = v
					}
				case "max_wait_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Storage.MaxWaitMs = v
					}
				case "read_pool_max":
					if v, ok := firstIntArg(cn); ok {
						cfg.Storage.ReadPoolMax = v
					}
				case "overlay_limit":
					if v, ok := firstIntArg(cn); ok {
						cfg.Storage.OverlayLimit = v
					}
				}
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Index.MaxFileSize = sz
						}
					} else if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileSize = int64(v)
					}
				case "max_total_size_mb":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxTotalSizeMB = int64(v)
					}
				case "max_file_count":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileCount = v
					}
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.FollowSymlinks = b
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.RespectGitignore = b
					}
				case "max_depth":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxDepth = v
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "min_delay_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.MinDelayMs = v
					}
				case "max_delay_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.MaxDelayMs = v
					}
				case "token_bucket_capacity":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.TokenBucketCap = v
					}
				case "token_fill_per_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.TokenFillPerSec = v
					}
				}
			}
		case "engine":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "mode":
					if s, ok := firstStringArg(cn); ok {
						cfg.Engine.Mode = s
					}
				case "auto_install":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Engine.AutoInstall = b
					}
				case "max_doc_bytes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Engine.MaxDocBytes = v
					}
				case "lindera_dict_path":
					if s, ok := firstStringArg(cn); ok {
						cfg.Engine.LinderaDictPath = s
					}
				}
			}
		case "include":
			cfg.Include = append(cfg.Include, collectStringArgs(n)...)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		}
	}

	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// parseSize handles size strings like "10MB", "500KB", "1GB".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}
