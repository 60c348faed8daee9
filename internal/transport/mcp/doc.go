// Package mcp exposes vehicle search as Model Context Protocol tools over stdio.
//
// Tools:
//   - search_listings: run a full search, optionally with a short answer
//   - interpret_query: show the structured query extracted from free text
//   - data_signals: demand and data quality signals from the search log
package mcp
