package main

import "github.com/npcforge/forge-installer/cmd/forge-installer/cmd"

func main() {
	cmd.Execute()
}
