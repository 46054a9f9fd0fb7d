package main

import "fundingwatch/internal/cli"

func main() {
	cli.Execute()
}
