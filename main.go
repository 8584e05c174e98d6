package main

import "github.com/theirongolddev/evmboard/cmd"

func main() {
	cmd.Execute()
}
