package main

import (
	"example.com/fleetops/cmd"
)

func main() {
	cmd.Execute()
}
