package main

import "github.com/jmehdipour/agenthub/cmd"

func main() {
	cmd.Execute()
}
