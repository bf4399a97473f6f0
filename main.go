package main

import "estoque-monitor/internal/cli"

func main() {
	cli.Execute()
}
