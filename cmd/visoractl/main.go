package main

import "github.com/your-org/visora/cmd/visoractl/cmd"

func main() {
	cmd.Execute()
}
