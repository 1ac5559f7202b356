package main

import "github.com/mkarimov/event-gateway/cmd"

func main() {
	cmd.Execute()
}
