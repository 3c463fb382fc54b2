package main

import "gasy-hub-backend/cmd"

func main() {
	cmd.Run()
}
