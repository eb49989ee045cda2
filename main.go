package main

import "github.com/theirongolddev/expplan/cmd"

func main() {
	cmd.Execute()
}
