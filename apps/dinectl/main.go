package main

import "github.com/dinetap/dinetap-go/apps/dinectl/cmd"

func main() {
	cmd.Execute()
}
