// Command sortarray-plugin serves the Sort.Array executor as a go-plugin
// module. Point a module manifest at the built binary with runtime "plugin".
package main

import (
	"fmt"
	"os"

	"github.com/DevelApp-ai/PluginJobRunner/internal/plugins/sortarray"
	"github.com/DevelApp-ai/PluginJobRunner/internal/runtime"
)

func main() {
	e, err := sortarray.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	runtime.Serve(e)
}
