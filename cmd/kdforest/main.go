package main

import (
	"github.com/ssargent/kdforest/cmd/kdforest/cmd"
	"github.com/ssargent/kdforest/pkg/di"
)

func main() {
	container := di.NewContainer()
	cmd.SetContainer(container)
	cmd.Execute()
}
