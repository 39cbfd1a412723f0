package main

import "github.com/go-go-golems/grillo/cmd/grillo/cmds"

func main() {
	cmds.Execute()
}
