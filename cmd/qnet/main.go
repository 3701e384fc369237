// Command qnet preprocesses SQuAD data, trains and tests the Match-LSTM reader, and serves
// predictions over HTTP.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
