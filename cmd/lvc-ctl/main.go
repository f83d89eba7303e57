package main

import "github.com/oshokin/lvc/cmd/lvc-ctl/cmd"

func main() {
	cmd.Execute()
}
