package main

import (
	cfg "imghost/src/configuration"
	server "imghost/src/server"
)

func main() {
	config := cfg.ReadProperties()
	server.RunServer(config)
}
