package main

import (
	"github.com/authy/authy/cmd"
)

func main() {
	cmd.Execute()
}
