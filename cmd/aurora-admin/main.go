package main

import "github.com/teteocan/aurora-admin/cmd/aurora-admin/cmd"

func main() {
	cmd.Execute()
}
