package main

import "github.com/pathwise/pathwise/cmd"

func main() {
	cmd.Execute()
}
