package main

import "github.com/x4357/pip-updates/cmd/pip-updates/cmd"

func main() {
	cmd.Execute()
}
