package main

import (
	"github.com/lubanana/kstock-dashboard/internal/cli"
)

func main() {
	cli.Run()
}
