package main

import "github.com/dayuer/satoshi-bridge/cmd"

func main() {
	cmd.Execute()
}
