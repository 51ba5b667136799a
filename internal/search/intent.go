package search

import "strings"

// Intent classifies a normalized query for spec.md §4.7 step 2.
type Intent string

const (
	IntentAPI    Intent = "api"
	IntentSymbol Intent = "symbol"
	IntentCode   Intent = "code"
)

// sqlKeywords guards against treating an embedded SQL/GraphQL query as an
// API-intent search term, grounded on the teacher's
// internal/core/content_filters.go IsTemplateStringQuery guard.
var sqlKeywords = []string{
	"select ", "insert ", "update ", "delete ", "from ", "where ",
	"join ", "create table", "alter table", "drop table",
}

var apiKeywords = []string{
	"get ", "post ", "put ", "patch ", "delete ", "endpoint", "route",
	"handler", "api", "request", "response",
}

var symbolishPrefixes = []string{".", "::", "->"}

// looksLikeSQLOrTemplate reports whether q contains an embedded SQL
// keyword, the security guard that disables API-intent inference so a
// query like "select * from users" is never misread as an API search.
func looksLikeSQLOrTemplate(q string) bool {
	for _, kw := range sqlKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// classifyIntent infers Intent for a normalized query, skipping API
// classification entirely when looksLikeSQLOrTemplate holds.
func classifyIntent(normalized string) Intent {
	if looksLikeSQLOrTemplate(normalized) {
		return IntentCode
	}
	for _, p := range symbolishPrefixes {
		if strings.Contains(normalized, p) {
			return IntentSymbol
		}
	}
	if !strings.Contains(normalized, " ") && normalized != "" {
		// A single bare identifier-shaped token reads as a symbol lookup.
		return IntentSymbol
	}
	for _, kw := range apiKeywords {
		if strings.Contains(normalized, kw) {
			return IntentAPI
		}
	}
	return IntentCode
}
