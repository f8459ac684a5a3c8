package main

import "github.com/MeKo-Tech/celltraj/cmd/celltraj/cmd"

func main() {
	cmd.Execute()
}
