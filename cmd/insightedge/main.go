package main

import "insightedge/internal/cli"

func main() {
	cli.Execute()
}
