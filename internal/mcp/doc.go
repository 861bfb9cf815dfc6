// Package mcp exposes indexing and search over the Model Context Protocol.
//
// Three tools are registered on a stdio server: index_codebase,
// search_code, and get_index_status. Tool faults are reported as
// human-readable text results rather than protocol errors, so a calling
// model can read and react to them.
//
// Stdout carries the MCP protocol; all logging goes to stderr.
package mcp
