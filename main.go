package main

import "memcarve/cmd"

func main() {
	cmd.Execute()
}
