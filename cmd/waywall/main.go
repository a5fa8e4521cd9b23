// Command waywall runs the nested Wayland compositor.
package main

import (
	"fmt"
	"os"

	"github.com/tesselslate/waywall/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
