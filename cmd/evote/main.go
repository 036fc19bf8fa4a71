package main

import "github.com/zhulik/evote/internal/cli"

func main() {
	cli.Run()
}
