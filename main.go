package main

import "github.com/adwalk/listing-agent/cmd"

func main() {
	cmd.Execute()
}
