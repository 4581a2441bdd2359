package main

import "github.com/ValentinKolb/dPing/cmd"

func main() {
	cmd.Execute()
}
