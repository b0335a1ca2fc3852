package main

import "github.com/tanq16/splitdl/cmd"

func main() {
	cmd.Execute()
}
