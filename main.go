package main

import "github.com/vibast-solutions/ms-go-payments-reconciler/cmd"

func main() {
	cmd.Execute()
}
