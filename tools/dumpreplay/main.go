// dumpreplay decodes a binary replay file and prints its header and splits as
// JSON. Useful when diagnosing rejected submissions.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"rungate/internal/logging"
	"rungate/internal/replay"
)

func main() {
	verify := flag.Bool("verify", false, "re-encode the decoded replay and check it matches byte for byte")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()
	logging.Setup(logging.Options{Level: *logLevel})
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dumpreplay [-verify] <file>")
		os.Exit(1)
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	header, splits, err := replay.Decode(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *verify {
		reencoded, err := replay.Encode(header, splits)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !bytes.Equal(data, reencoded) {
			fmt.Fprintln(os.Stderr, "round-trip mismatch: re-encoded replay differs from input")
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"header": header, "splits": splits}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
