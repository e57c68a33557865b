// The main package for the crawllie executable.
package main

import (
	"github.com/crawllie/crawllie/cmd"
)

func main() {
	cmd.Execute()
}
