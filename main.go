package main

import "github.com/iksnae/chatline/cmd"

func main() {
	cmd.Execute()
}
