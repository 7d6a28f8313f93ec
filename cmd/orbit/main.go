// Command orbit prints task forests, project rollups and statistics from a
// JSON export or straight from Notion.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
