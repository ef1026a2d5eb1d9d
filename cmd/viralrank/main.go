package main

import "github.com/zombar/viralrank/internal/cli"

func main() {
	cli.Main()
}
