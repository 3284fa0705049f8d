package main

import "github.com/curmorpheus/safesite/cmd/safesite/cmd"

func main() {
	cmd.Execute()
}
