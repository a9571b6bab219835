package main

import "github.com/JnliaH/ChromaQuant/cmd"

func main() {
	cmd.Execute()
}
