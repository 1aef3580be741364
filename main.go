package main

import "github.com/cppla/yatube/cmd"

func main() {
	cmd.Execute()
}
