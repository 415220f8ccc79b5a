package main

import "github.com/theirongolddev/ccrelay/cmd"

func main() {
	cmd.Execute()
}
