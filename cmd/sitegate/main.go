package main

import "github.com/probaccess/sitegate/internal/cli"

func main() {
	cli.Execute()
}
