package main

import "github.com/webgrid/gridctl/cmd/gridctl/cmd"

func main() {
	cmd.Execute()
}
