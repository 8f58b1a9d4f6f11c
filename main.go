package main

import (
	"github.com/berry2bd/DHCP-Server/internal/cmd"
)

func main() {
	cmd.Main()
}
