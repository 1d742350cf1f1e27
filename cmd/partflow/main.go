package main

import "github.com/partflow-io/partflow/internal/cli"

func main() {
	cli.Execute()
}
