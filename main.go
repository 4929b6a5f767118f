package main

import "shollu-partner/cmd"

func main() {
	cmd.Execute()
}
