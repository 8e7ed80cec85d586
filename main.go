package main

import "ammowatch/internal/cli"

func main() {
	cli.Execute()
}
