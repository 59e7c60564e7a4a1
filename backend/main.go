package main

import "github.com/fleetpanda/bolextract/backend/cmd"

func main() {
	cmd.Execute()
}
