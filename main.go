package main

import "github.com/hatlab/hatctl/cmd"

func main() {
	cmd.Execute()
}
