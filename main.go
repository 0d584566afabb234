package main

import "github.com/lukman83/pricepulse/cmd"

func main() {
	cmd.Execute()
}
