package main

import "github.com/lostspecs/curator/cmd"

func main() {
	cmd.Execute()
}
