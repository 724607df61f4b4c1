package main

import (
	"github.com/ymzk/threadpilot/cmd"
)

func main() {
	cmd.Execute()
}
