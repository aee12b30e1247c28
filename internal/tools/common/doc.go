// Package common provides helpers shared by the MCP tool packages: account
// argument handling and the instrumentation wrapper every tool handler is
// registered through.
package common
