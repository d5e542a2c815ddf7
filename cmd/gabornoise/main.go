package main

import "github.com/MeKo-Tech/gabornoise/internal/cmd"

func main() {
	cmd.Execute()
}
