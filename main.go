package main

import "github.com/derickschaefer/pocketdash/cmd"

func main() {
	cmd.Execute()
}
