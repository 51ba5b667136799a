package search

import (
	deckerrors "github.com/standardbeagle/deckard/internal/errors"
)

// enforceRootScope implements spec.md §4.7's root_ids scope rule: when
// opts.RootIDs names an id outside opts.AllowedRootIDs, either clip to the
// intersection (opts.ClipOutOfScope) or fail with ERR_ROOT_OUT_OF_SCOPE.
// An empty AllowedRootIDs means no enforcement is configured (single-root
// callers that never populate it).
func enforceRootScope(opts Options) (Options, error) {
	if len(opts.AllowedRootIDs) == 0 || len(opts.RootIDs) == 0 {
		return opts, nil
	}
	allowed := make(map[string]bool, len(opts.AllowedRootIDs))
	for _, id := range opts.AllowedRootIDs {
		allowed[id] = true
	}

	var inScope []string
	var outOfScope []string
	for _, id := range opts.RootIDs {
		if allowed[id] {
			inScope = append(inScope, id)
		} else {
			outOfScope = append(outOfScope, id)
		}
	}

	if len(outOfScope) == 0 {
		return opts, nil
	}
	if !opts.ClipOutOfScope {
		return opts, deckerrors.New(deckerrors.CodeRootOutOfScope, "root_ids outside allowed scope: "+joinStrings(outOfScope))
	}
	opts.RootIDs = inScope
	return opts, nil
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
