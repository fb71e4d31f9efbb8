package main

import "github.com/rpanzer-aviatrix/speedtest/cmd"

func main() {
	cmd.Execute()
}
