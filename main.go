package main

import "github.com/VoxDroid/shguard/cmd"

func main() {
	cmd.Execute()
}
