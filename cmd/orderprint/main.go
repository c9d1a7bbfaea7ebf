package main

import "github.com/ppiankov/orderprint/internal/cli"

func main() {
	cli.Execute()
}
