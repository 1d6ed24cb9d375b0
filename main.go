package main

import "github.com/DaniruKun/visuai/cmd"

func main() {
	cmd.Execute()
}
