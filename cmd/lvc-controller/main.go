package main

import "github.com/oshokin/lvc/cmd/lvc-controller/cmd"

func main() {
	cmd.Execute()
}
