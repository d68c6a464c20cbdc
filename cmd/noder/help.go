// ABOUTME: Help display for the noder CLI with usage patterns, examples, and server environment.
// ABOUTME: Provides printHelp for formatted usage output on the flag set's Usage hook.
package main

import (
	"fmt"
	"io"
)

const noderASCII = `
   .------.      .-------.      .-------.
   | text |----->| image |----->| video |
   '------'      '-------'      '-------'
`

// printHelp writes a formatted help message to w, including usage patterns,
// flags, examples, and the server's environment variables.
func printHelp(w io.Writer, ver string) {
	fmt.Fprint(w, noderASCII)
	fmt.Fprintf(w, "noder %s - node-based workflow graph server\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  noder -server                     Start the HTTP API server")
	fmt.Fprintln(w, "  noder -validate <workflow.json>   Lint a workflow file")
	fmt.Fprintln(w, "  noder <workflow.json>             Shorthand for -validate")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -server               Start HTTP server mode")
	fmt.Fprintln(w, "  -validate             Lint a workflow file without serving")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Server environment:")
	fmt.Fprintln(w, "  NODER_BIND            Socket address (default: 127.0.0.1:7870)")
	fmt.Fprintln(w, "  NODER_ALLOW_REMOTE    Allow non-loopback binds (default: false)")
	fmt.Fprintln(w, "  NODER_AUTH_TOKEN      Bearer token, required with NODER_ALLOW_REMOTE")
	fmt.Fprintln(w, "  NODER_DATA_DIR        Data directory (default: ~/.noder)")
	fmt.Fprintln(w, "  NODER_MIRROR          Document mirror: memory or sqlite (default: memory)")
	fmt.Fprintln(w, "  NODER_MAX_HISTORY     Undo depth per session (default: 50)")
	fmt.Fprintln(w, "  NODER_DEBOUNCE_MS     Snapshot coalescing window in ms (default: 300)")
	fmt.Fprintln(w, "  NODER_MAX_SESSIONS    Session store capacity (default: 200)")
	fmt.Fprintln(w, "  NODER_SESSION_TTL     Idle session lifetime (default: 24h)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  noder -server")
	fmt.Fprintln(w, "  NODER_MIRROR=sqlite noder -server")
	fmt.Fprintln(w, "  noder -validate my_workflow.json")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Docs: https://github.com/2389-research/noder")
}
