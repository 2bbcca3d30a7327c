package main

import "ninetofiver/cmd"

func main() {
	cmd.Execute()
}
