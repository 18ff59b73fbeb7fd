// Command textstat-mcp serves the textstat tools over stdio.
// It exists to exercise the MCP client integration end to end.
package main

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/parley-ai/parley/pkg/mcpserver/textstat"
)

func main() {
	s := textstat.NewServer()
	if err := server.ServeStdio(s); err != nil {
		log.Fatal(err)
	}
}
