package main

import "github.com/nchapman/kokoro-fetch/cmd"

func main() {
	cmd.Execute()
}
