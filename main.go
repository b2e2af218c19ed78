package main

import "github.com/StinkyLord/bom-tree-builder/cmd"

func main() {
	cmd.Execute()
}
