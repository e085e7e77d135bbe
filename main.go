package main

import "github.com/noeralma/procure-flow-organize-sub000/cmd"

func main() {
	cmd.Execute()
}
