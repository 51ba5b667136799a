package callgraph

import (
	"fmt"
	"os"
	"path/filepath"
	plug "plugin"
)

// Plugin is the narrow interface spec.md §4.8's optional out-of-process
// augment_neighbors/filter_neighbors hooks implement. Unlike the rest of
// deckard's dependency stack, no pack library does out-of-process Go
// module loading for this, so this one corner of the system reaches for
// the standard library's plugin package directly (see DESIGN.md).
type Plugin interface {
	Name() string
	AugmentNeighbors(symbol string, neighbors []*Node) []*Node
	FilterNeighbors(symbol string, neighbors []*Node) []*Node
}

// pluginSymbolName is the exported symbol every .so plugin must provide,
// of type Plugin.
const pluginSymbolName = "CallgraphPlugin"

// loadPlugins opens every *.so file in dir and looks up pluginSymbolName.
// A load failure (bad file, missing symbol, wrong type) is recorded as a
// warning string and never aborts the rest of the load, per spec.md
// §4.8's "plugin load errors are captured as plugin_warnings, never
// fatal".
func loadPlugins(dir string) ([]Plugin, []string) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []string{fmt.Sprintf("reading plugin dir %s: %v", dir, err)}
	}

	var plugins []Plugin
	var warnings []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".so" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := plug.Open(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("opening plugin %s: %v", entry.Name(), err))
			continue
		}
		sym, err := p.Lookup(pluginSymbolName)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("plugin %s missing %s symbol: %v", entry.Name(), pluginSymbolName, err))
			continue
		}
		impl, ok := sym.(Plugin)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("plugin %s's %s symbol does not implement callgraph.Plugin", entry.Name(), pluginSymbolName))
			continue
		}
		plugins = append(plugins, impl)
	}
	return plugins, warnings
}

// applyPlugins runs every loaded plugin's augment then filter hook over
// node's direct children, in load order.
func applyPlugins(plugins []Plugin, symbol string, node *Node) {
	if node == nil || len(plugins) == 0 {
		return
	}
	for _, p := range plugins {
		node.Children = p.AugmentNeighbors(symbol, node.Children)
		node.Children = p.FilterNeighbors(symbol, node.Children)
	}
}
