package main

import "github.com/stephnangue/vaultclient/cmd"

func main() {
	cmd.Execute()
}
