package main

import "github.com/rohan1205/NeuraAttend/cmd"

func main() {
	cmd.Execute()
}
