package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/ngenohkevin/hivedeck-monitor/cmd"
)

func main() {
	cmd.Execute()
}
