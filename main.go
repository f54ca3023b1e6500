package main

import "github.com/loomcms/loom/cmd"

func main() {
	cmd.Execute()
}
