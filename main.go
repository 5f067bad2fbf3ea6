package main

import "reel/cmd"

func main() {
	cmd.Execute()
}
