// Package search queries the file index directly in the search engine,
// bypassing the backend API.
//
// A Client wraps the Typesense Go client and issues one documents search per
// Query, authenticating with a search-only key. Every request asks for the file_extension facet so the
// caller can render type filters alongside hits, and highlight snippets are
// kept verbatim so views can decide how to style <mark> runs.
//
// Search-as-you-type callers number each query with a Tracker and drop any
// Result whose number is no longer the latest.
package search
